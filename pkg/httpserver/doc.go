// Package httpserver runs an http.Handler with configurable timeouts and
// graceful shutdown on context cancellation or SIGINT/SIGTERM.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Liveness and Readiness return probe handlers; readiness runs the supplied
// dependency checks (database ping, redis ping) on every request.
package httpserver
