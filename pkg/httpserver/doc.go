// Package httpserver runs the service's HTTP API with graceful shutdown.
//
// Run blocks until its context is cancelled and then calls Shutdown bounded
// by the configured timeout, which makes it a natural errgroup member:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// The write timeout is left at zero by default because the event stream
// endpoint holds responses open for the lifetime of a subscription.
//
// HealthCheckHandler serves liveness (no checks) or readiness (named checks
// such as the Postgres or Redis healthchecks) and answers 503 with a per-check
// report when a dependency is down. Start and listen errors are wrapped with
// ErrStart, shutdown errors with ErrShutdown.
package httpserver
