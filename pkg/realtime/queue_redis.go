package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// enqueueScript pushes only while the list is below capacity, so the bound
// holds for every producer writing to the key.
var enqueueScript = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('LPUSH', KEYS[1], ARGV[2])
return 1
`)

// RedisQueue is a Queue stored in a Redis list. The list is private to one
// process instance: its carrier can only reach connections registered in
// the same process, so the key always carries the instance id.
type RedisQueue struct {
	client         redis.UniversalClient
	key            string
	instanceID     string
	capacity       int
	pollTimeout    time.Duration
	enqueueTimeout time.Duration
	errorBackoff   time.Duration
	logger         *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// RedisQueueOption configures a RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithPollTimeout sets how long a blocking pop waits before re-checking for
// cancellation.
func WithPollTimeout(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.pollTimeout = d
		}
	}
}

// WithEnqueueTimeout bounds the time Enqueue may spend talking to Redis.
func WithEnqueueTimeout(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.enqueueTimeout = d
		}
	}
}

// WithInstanceID names the process instance that owns the queue. Without it
// a random id is used, which leaves the list of a previous run behind.
func WithInstanceID(id string) RedisQueueOption {
	return func(q *RedisQueue) {
		if id != "" {
			q.instanceID = id
		}
	}
}

func WithRedisQueueLogger(l *slog.Logger) RedisQueueOption {
	return func(q *RedisQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewRedisQueue creates a queue stored under "<key>:<instance id>".
func NewRedisQueue(client redis.UniversalClient, key string, capacity int, opts ...RedisQueueOption) (*RedisQueue, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &RedisQueue{
		client:         client,
		capacity:       capacity,
		pollTimeout:    time.Second,
		enqueueTimeout: 250 * time.Millisecond,
		errorBackoff:   500 * time.Millisecond,
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.instanceID == "" {
		q.instanceID = uuid.NewString()
	}
	q.key = key + ":" + q.instanceID
	q.logger = q.logger.With(logger.Component("realtime.redis_queue"), slog.String("key", q.key))
	return q, nil
}

// Key returns the Redis list the queue reads and writes.
func (q *RedisQueue) Key() string { return q.key }

func (q *RedisQueue) Enqueue(ctx context.Context, env Envelope) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	payload, err := json.Marshal(env)
	if err != nil {
		q.logger.LogAttrs(ctx, slog.LevelError, "encode envelope", logger.NotificationID(env.ID), logger.Error(err))
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, q.enqueueTimeout)
	defer cancel()

	pushed, err := enqueueScript.Run(ctx, q.client, []string{q.key}, q.capacity, payload).Int()
	if err != nil {
		q.logger.LogAttrs(ctx, slog.LevelError, "enqueue failed", logger.NotificationID(env.ID), logger.Error(err))
		return false
	}
	return pushed == 1
}

func (q *RedisQueue) Dequeue(ctx context.Context) iter.Seq[Envelope] {
	return func(yield func(Envelope) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.done:
				return
			default:
			}

			res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				q.logger.LogAttrs(ctx, slog.LevelError, "dequeue failed", logger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case <-time.After(q.errorBackoff):
				}
				continue
			}

			// BRPOP replies with [key, value].
			var env Envelope
			if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
				q.logger.LogAttrs(ctx, slog.LevelError, "discarding malformed envelope", logger.Error(err))
				continue
			}
			if !yield(env) {
				return
			}
		}
	}
}

func (q *RedisQueue) Len(ctx context.Context) int {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		q.logger.LogAttrs(ctx, slog.LevelError, "queue length", logger.Error(err))
		return 0
	}
	return int(n)
}

func (q *RedisQueue) Cap() int { return q.capacity }

// Close stops local sequences. The Redis list and the client are left
// untouched.
func (q *RedisQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
