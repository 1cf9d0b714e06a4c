package httpserver

import (
	"log/slog"
	"time"
)

// Option configures the HTTP server.
type Option func(*options)

type options struct {
	addr              string
	readHeaderTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger
}

func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: addr cannot be empty")
	}
	return func(o *options) { o.addr = addr }
}

func WithReadHeaderTimeout(d time.Duration) Option {
	mustPositive("WithReadHeaderTimeout", d)
	return func(o *options) { o.readHeaderTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	mustPositive("WithReadTimeout", d)
	return func(o *options) { o.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	mustPositive("WithWriteTimeout", d)
	return func(o *options) { o.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	mustPositive("WithIdleTimeout", d)
	return func(o *options) { o.idleTimeout = d }
}

// WithShutdownTimeout bounds how long in-flight requests may take to finish.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("WithShutdownTimeout", d)
	return func(o *options) { o.shutdownTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + ": duration must be > 0")
	}
}
