// Command notifyd runs the notification delivery service: an HTTP API that
// sends mail through pooled relay sessions and fans real-time notifications
// out to live SSE connections.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/hub"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/realtime"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if len(app.EnvFiles) > 0 {
		if err := config.LoadEnv(app.EnvFiles...); err != nil {
			return err
		}
		if err := config.Load(&app); err != nil {
			return fmt.Errorf("app config: %w", err)
		}
	}

	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	overrides, err := logger.FromConfig(logCfg)
	if err != nil {
		return err
	}
	log := logger.New(append([]logger.Option{
		logger.WithEnvironment(logger.ParseEnvironment(app.Env), app.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}, overrides...)...)
	logger.SetAsDefault(log)

	var rtCfg realtime.Config
	if err := config.Load(&rtCfg); err != nil {
		return fmt.Errorf("realtime config: %w", err)
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	var deps []dependency
	defer func() {
		for i := len(deps) - 1; i >= 0; i-- {
			if err := deps[i].close(); err != nil {
				log.LogAttrs(context.Background(), slog.LevelError, "close dependency",
					slog.String("dependency", deps[i].name), logger.Error(err))
			}
		}
	}()

	mail, err := newMailer(log)
	if err != nil {
		return err
	}
	deps = append(deps, dependency{name: "mail pool", close: mail.pool.Close})

	queue, queueDeps, err := newQueue(ctx, rtCfg, log)
	if err != nil {
		return err
	}
	deps = append(deps, queueDeps...)
	deps = append(deps, dependency{name: "queue", close: queue.Close})

	acks, ackDeps, err := newAckSink(ctx, app.AckStore, log)
	if err != nil {
		return err
	}
	deps = append(deps, ackDeps...)

	directory := realtime.NewDirectory(rtCfg.DirectoryShards)
	h, err := hub.New(directory, hub.WithLogger(log))
	if err != nil {
		return err
	}
	deps = append(deps, dependency{name: "hub", close: h.Close})

	carrier, err := realtime.NewCarrier(queue, directory, h, acks, append(rtCfg.CarrierOptions(),
		realtime.WithCarrierLogger(log),
		realtime.WithFlushErrorHandler(func(ids []string, err error) {
			log.LogAttrs(context.Background(), slog.LevelError, "ack flush abandoned",
				logger.BatchSize(len(ids)), logger.Error(err))
		}),
	)...)
	if err != nil {
		return err
	}

	checks := make(map[string]httpserver.Check)
	for _, d := range append(queueDeps, ackDeps...) {
		checks[d.name] = d.check
	}
	router := (&api{
		queue:        queue,
		mail:         mail.dispatcher,
		accounts:     mail.accounts,
		events:       eventsHandler(h),
		carrier:      carrier,
		checks:       checks,
		log:          log.With(logger.Component("api")),
		maxBody:      app.MaxBodyBytes,
		checkTimeout: app.HealthTimeout,
	}).routes()

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(carrier.Worker(gctx))
	g.Go(func() error { return srv.Run(gctx, router) })
	g.Go(func() error {
		// Open streams would hold graceful shutdown until its deadline.
		<-gctx.Done()
		return h.Close()
	})

	log.LogAttrs(ctx, slog.LevelInfo, "notifyd started",
		slog.String("queue", rtCfg.QueueDriver),
		slog.String("ack_store", app.AckStore),
		slog.Int("queue_capacity", queue.Cap()),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "notifyd stopped")
	return nil
}
