// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: a retrying connection pool, embedded goose migrations,
// health checks and the delivery acknowledgment store.
//
// # Architecture
//
//   • Config – populated from environment variables via
//     github.com/caarlos0/env. It controls connection pool limits, health-check
//     cadence and the migrations table.
//
//   • Connect – opens a *pgxpool.Pool based on Config, retrying until the
//     database becomes available or the context is cancelled.
//
//   • Migrate – runs the migrations embedded in this package, creating the
//     notification_deliveries table.
//
//   • AckStore – implements realtime.AckSink by inserting one row per
//     delivered notification id and channel. Duplicate acknowledgments are
//     ignored, so retried flushes are harmless.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	carrier, err := realtime.NewCarrier(queue, directory, hub, pg.NewAckStore(pool))
package pg
