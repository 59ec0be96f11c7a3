package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/realtime"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

// dependency is an external resource opened at startup.
type dependency struct {
	name  string
	check httpserver.Check
	close func() error
}

// queueCloser is the queue surface the binary needs at shutdown.
type queueCloser interface {
	realtime.Queue
	io.Closer
}

func newQueue(ctx context.Context, cfg realtime.Config, log *slog.Logger) (queueCloser, []dependency, error) {
	switch cfg.QueueDriver {
	case queueDriverMemory:
		return realtime.NewMemoryQueue(cfg.QueueCapacity), nil, nil
	case queueDriverRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, nil, fmt.Errorf("redis config: %w", err)
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, nil, err
		}
		q, err := realtime.NewRedisQueue(client, cfg.QueueKey, cfg.QueueCapacity,
			realtime.WithInstanceID(instanceID(cfg)),
			realtime.WithPollTimeout(cfg.RedisPollTimeout),
			realtime.WithRedisQueueLogger(log),
		)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return q, []dependency{{name: "redis", check: redis.Healthcheck(client), close: client.Close}}, nil
	default:
		return nil, nil, fmt.Errorf("unknown REALTIME_QUEUE_DRIVER %q", cfg.QueueDriver)
	}
}

// instanceID names this process for its private queue feed.
func instanceID(cfg realtime.Config) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	host, _ := os.Hostname()
	return host
}

func newAckSink(ctx context.Context, store string, log *slog.Logger) (realtime.AckSink, []dependency, error) {
	switch store {
	case ackStoreLog:
		return realtime.AckSinkFunc(func(ctx context.Context, ids []string, channel string) error {
			log.LogAttrs(ctx, slog.LevelInfo, "notifications delivered",
				logger.Component("notifyd"),
				slog.String("channel", channel),
				logger.BatchSize(len(ids)),
				slog.Any("notification_ids", ids),
			)
			return nil
		}), nil, nil

	case ackStorePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, fmt.Errorf("postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		dep := dependency{
			name:  "postgres",
			check: pg.Healthcheck(pool),
			close: func() error { pool.Close(); return nil },
		}
		return pg.NewAckStore(pool), []dependency{dep}, nil

	case ackStoreMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, fmt.Errorf("mongo config: %w", err)
		}
		client, coll, err := mongo.AckCollection(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dep := dependency{
			name:  "mongo",
			check: mongo.Healthcheck(client),
			close: func() error { return client.Disconnect(context.Background()) },
		}
		return mongo.NewAckStore(coll), []dependency{dep}, nil

	default:
		return nil, nil, fmt.Errorf("unknown ACK_STORE %q", store)
	}
}
