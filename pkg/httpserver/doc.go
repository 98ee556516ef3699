// Package httpserver wraps net/http's Server with graceful shutdown, signal
// handling, environment-driven configuration, and health probe handlers.
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil { ... }
//
// Run blocks until the context is cancelled, SIGINT/SIGTERM arrives, or the
// listener fails; in-flight requests get ShutdownTimeout to complete.
package httpserver
