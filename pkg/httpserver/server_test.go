package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/familykit/pkg/httpserver"
	"github.com/dmitrymomot/familykit/pkg/logger"
)

func waitForAddr(t *testing.T, srv *httpserver.Server) string {
	t.Helper()
	var addr string
	require.Eventually(t, func() bool {
		if a := srv.Addr(); a != nil {
			addr = a.String()
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	return addr
}

func TestRunAndShutdownOnContext(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"), httpserver.WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
	}()

	addr := waitForAddr(t, srv)
	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Run(ctx, nil) }()
	waitForAddr(t, srv)

	err := srv.Run(ctx, nil)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)
}

func TestRunInvalidAddr(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr("256.0.0.1:-1"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	assert.NoError(t, httpserver.New().Shutdown(context.Background()))
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { httpserver.WithAddr("") })
	assert.Panics(t, func() { httpserver.WithReadTimeout(0) })
	assert.Panics(t, func() { httpserver.WithShutdownTimeout(-time.Second) })
	assert.NotPanics(t, func() {
		httpserver.NewFromConfig(httpserver.Config{Addr: ":0"}, httpserver.WithLogger(nil))
	})
}

func TestProbes(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		ok := func(context.Context) error { return nil }
		rec := httptest.NewRecorder()
		httpserver.Readiness(logger.Discard(), ok, ok)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		failing := func(context.Context) error { return errors.New("db down") }
		rec := httptest.NewRecorder()
		httpserver.Readiness(logger.Discard(), failing)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
	})
}
