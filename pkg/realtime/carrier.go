package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// State is the carrier's position in its processing loop.
type State int32

const (
	StateIdle State = iota
	StateDraining
	StateResolving
	StateSending
	StateAcking
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateResolving:
		return "resolving"
	case StateSending:
		return "sending"
	case StateAcking:
		return "acking"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of carrier counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Failed    uint64
	Acked     uint64
	Pending   int
}

// Carrier drains a Queue, pushes each notification to the recipient's live
// connections and acknowledges delivered ids in batches.
type Carrier struct {
	queue    Queue
	resolver Resolver
	hub      HubSender
	acks     AckSink
	batch    *Batch

	batchSize    int
	channel      string
	ackRetries   uint64
	ackBackoff   time.Duration
	flushTimeout time.Duration
	onFlushError func(ids []string, err error)
	logger       *slog.Logger

	state     atomic.Int32
	running   atomic.Bool
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	acked     atomic.Uint64
}

// NewCarrier wires a carrier to its collaborators.
func NewCarrier(q Queue, r Resolver, hub HubSender, acks AckSink, opts ...CarrierOption) (*Carrier, error) {
	switch {
	case q == nil:
		return nil, ErrNilQueue
	case r == nil:
		return nil, ErrNilResolver
	case hub == nil:
		return nil, ErrNilHubSender
	case acks == nil:
		return nil, ErrNilAckSink
	}

	c := &Carrier{
		queue:        q,
		resolver:     r,
		hub:          hub,
		acks:         acks,
		batchSize:    DefaultAckBatchSize,
		channel:      "realtime",
		ackRetries:   3,
		ackBackoff:   200 * time.Millisecond,
		flushTimeout: 5 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.batch = NewBatch(c.batchSize, 0)
	c.logger = c.logger.With(logger.Component("realtime.carrier"))
	return c, nil
}

// State reports what the carrier is doing right now.
func (c *Carrier) State() State {
	return State(c.state.Load())
}

func (c *Carrier) setState(s State) {
	c.state.Store(int32(s))
}

// Stats returns a snapshot of the carrier counters.
func (c *Carrier) Stats() Stats {
	return Stats{
		Delivered: c.delivered.Load(),
		Dropped:   c.dropped.Load(),
		Failed:    c.failed.Load(),
		Acked:     c.acked.Load(),
		Pending:   c.batch.Len(),
	}
}

// Run consumes the queue until ctx is cancelled or the queue is closed.
// The item in flight is finished and the partial batch is flushed before
// Run returns. Per-item failures are logged and never stop the loop.
func (c *Carrier) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrCarrierRunning
	}
	defer c.running.Store(false)

	c.setState(StateDraining)
	c.logger.LogAttrs(ctx, slog.LevelInfo, "carrier started",
		slog.Int("queue_capacity", c.queue.Cap()),
		logger.BatchSize(c.batchSize),
	)

	for env := range c.queue.Dequeue(ctx) {
		c.process(ctx, env)
		c.setState(StateDraining)
	}

	c.setState(StateAcking)
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flushTimeout)
	defer cancel()
	_ = c.flush(flushCtx)

	c.setState(StateStopped)
	stats := c.Stats()
	c.logger.LogAttrs(ctx, slog.LevelInfo, "carrier stopped",
		slog.Uint64("delivered", stats.Delivered),
		slog.Uint64("dropped", stats.Dropped),
		slog.Uint64("failed", stats.Failed),
		slog.Uint64("acked", stats.Acked),
		slog.Int("pending", stats.Pending),
	)
	return nil
}

// Worker adapts Run for errgroup.
func (c *Carrier) Worker(ctx context.Context) func() error {
	return func() error {
		return c.Run(ctx)
	}
}

func (c *Carrier) process(ctx context.Context, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.failed.Add(1)
			c.logger.LogAttrs(ctx, slog.LevelError, "panic while delivering notification",
				logger.NotificationID(env.ID),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()

	c.setState(StateResolving)
	conns := c.resolver.Lookup(env.Recipient, env.Application)
	if len(conns) == 0 {
		c.dropped.Add(1)
		c.logger.LogAttrs(ctx, slog.LevelInfo, "notification dropped",
			logger.NotificationID(env.ID),
			logger.Recipient(env.Recipient),
			logger.Application(env.Application),
			logger.Error(ErrDeliveryDropped),
		)
		return
	}

	c.setState(StateSending)
	if err := c.hub.Push(ctx, conns, env.Payload); err != nil {
		c.failed.Add(1)
		c.logger.LogAttrs(ctx, slog.LevelError, "push failed",
			logger.NotificationID(env.ID),
			logger.Recipient(env.Recipient),
			slog.Int("connections", len(conns)),
			logger.Error(err),
		)
		return
	}
	c.delivered.Add(1)

	if c.batch.Add(env.ID) {
		c.setState(StateAcking)
		_ = c.flush(ctx)
	}
}

// flush hands the pending ids to the ack sink and waits for the outcome.
// On failure the ids go back into the batch.
func (c *Carrier) flush(ctx context.Context) error {
	ids := c.batch.Take()
	if len(ids) == 0 {
		return nil
	}

	attempts := 0
	backoff := retry.WithMaxRetries(c.ackRetries, retry.NewExponential(c.ackBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := c.acks.MarkDelivered(ctx, ids, c.channel); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		c.acked.Add(uint64(len(ids)))
		c.logger.LogAttrs(ctx, slog.LevelDebug, "acknowledged deliveries",
			logger.BatchSize(len(ids)),
			logger.RetryCount(max(attempts-1, 0)),
		)
		return nil
	}

	err = errors.Join(ErrAckFlushFailed, err)
	overflow := c.batch.Restore(ids)
	c.logger.LogAttrs(ctx, slog.LevelError, "acknowledgment flush failed",
		logger.BatchSize(len(ids)),
		logger.RetryCount(max(attempts-1, 0)),
		slog.Int("discarded", len(overflow)),
		logger.Error(err),
	)
	if c.onFlushError != nil {
		c.onFlushError(ids, err)
	}
	return err
}
