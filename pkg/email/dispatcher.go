package email

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/transport"
)

// Pool is the part of transport.Pool the dispatcher needs.
type Pool interface {
	Acquire(ctx context.Context, o transport.Override) (*transport.PooledConn, error)
	Release(c *transport.PooledConn)
	Invalidate(c *transport.PooledConn)
}

// OutcomeRecorder receives the result of every send.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, msg Message, res Result)
}

// Dispatcher sends messages through pooled relay sessions and classifies
// the outcome.
type Dispatcher struct {
	pool          Pool
	defaultSender string
	recorder      OutcomeRecorder
	logger        *slog.Logger
	retryAttempts uint64
	retryBase     time.Duration
}

// NewDispatcher creates a dispatcher on top of pool.
func NewDispatcher(pool Pool, opts ...DispatcherOption) (*Dispatcher, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	d := &Dispatcher{
		pool:          pool,
		logger:        slog.Default(),
		retryAttempts: 3,
		retryBase:     500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(logger.Component("email.dispatcher"))
	return d, nil
}

// Send delivers msg once. The pooled connection is released when the relay
// accepted or refused the message, and invalidated on any other failure.
// An empty From is taken from the sender account, then the default sender.
func (d *Dispatcher) Send(ctx context.Context, msg Message) Result {
	if msg.From == "" {
		msg.From = cmp.Or(msg.Account.From, d.defaultSender)
	}

	start := time.Now()
	res := d.send(ctx, msg)
	res.Attempts = 1
	res.Duration = time.Since(start)

	d.log(ctx, msg, res)
	if d.recorder != nil {
		d.recorder.RecordOutcome(ctx, msg, res)
	}
	return res
}

func (d *Dispatcher) send(ctx context.Context, msg Message) Result {
	env, err := buildEnvelope(msg)
	if err != nil {
		return result(err)
	}

	if err := ctx.Err(); err != nil {
		return result(err)
	}

	conn, err := d.pool.Acquire(ctx, msg.Account)
	if err != nil {
		return result(err)
	}

	res := result(conn.Send(ctx, env))
	switch {
	case res.Kind == KindDelivered:
		d.pool.Release(conn)
	case res.Kind.Rejected():
		if err := conn.Reset(); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "reset after rejection failed",
				logger.ConnectionID(conn.ID()),
				logger.Error(err),
			)
			d.pool.Invalidate(conn)
			break
		}
		d.pool.Release(conn)
	default:
		d.pool.Invalidate(conn)
	}
	return res
}

// SendWithRetry calls Send until it succeeds, fails terminally or the retry
// budget is spent. Only retryable kinds are retried.
func (d *Dispatcher) SendWithRetry(ctx context.Context, msg Message) Result {
	var (
		res      Result
		attempts int
	)
	backoff := retry.WithMaxRetries(d.retryAttempts, retry.NewExponential(d.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		res = d.Send(ctx, msg)
		if res.Retryable() {
			return retry.RetryableError(res.Err)
		}
		return nil
	})
	if attempts == 0 {
		return Result{Kind: KindTransientConnection, Message: err.Error(), Err: err}
	}
	res.Attempts = attempts
	return res
}

// SendStored resolves a message by id and sends it.
func (d *Dispatcher) SendStored(ctx context.Context, store MessageStore, id string) (Result, error) {
	msg, err := store.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return Result{}, err
		}
		return Result{}, errors.Join(ErrMessageNotFound, err)
	}
	return d.Send(ctx, msg), nil
}

func (d *Dispatcher) log(ctx context.Context, msg Message, res Result) {
	attrs := []slog.Attr{
		logger.Outcome(res.Kind.String()),
		logger.Sender(msg.Account.String()),
		logger.Duration(res.Duration),
		slog.Int("recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)),
	}
	if msg.Tag != "" {
		attrs = append(attrs, slog.String("tag", msg.Tag))
	}

	switch {
	case res.OK():
		d.logger.LogAttrs(ctx, slog.LevelDebug, "mail delivered", attrs...)
	case res.Kind.Rejected(), res.Kind == KindInvalidMessage:
		attrs = append(attrs, slog.String("relay_message", res.Message))
		d.logger.LogAttrs(ctx, slog.LevelWarn, "mail refused", attrs...)
	default:
		attrs = append(attrs, logger.Error(res.Err))
		d.logger.LogAttrs(ctx, slog.LevelError, "mail send failed", attrs...)
	}
}

func result(err error) Result {
	kind, message := classify(err)
	return Result{Kind: kind, Message: message, Err: err}
}
