package transport

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Pool keeps reusable relay sessions partitioned by sender override.
// All methods are safe for concurrent use.
type Pool struct {
	dialer      Dialer
	maxPerKey   int
	maxIdleTime time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex // guards buckets map only
	buckets map[Override]*bucket
	closed  atomic.Bool
}

// bucket holds the connections of one signature. total counts idle,
// checked-out and reserved (being dialed) connections.
type bucket struct {
	mu    sync.Mutex
	idle  []*PooledConn
	total int
}

// Stats is a point-in-time view of one signature bucket.
type Stats struct {
	Idle  int
	InUse int
	Total int
}

// NewPool creates a pool that opens connections with dialer and keeps at
// most maxPerKey connections per sender override.
func NewPool(dialer Dialer, maxPerKey int, opts ...PoolOption) (*Pool, error) {
	if dialer == nil {
		return nil, ErrNilDialer
	}
	if maxPerKey <= 0 {
		return nil, ErrInvalidPoolSize
	}

	p := &Pool{
		dialer:    dialer,
		maxPerKey: maxPerKey,
		logger:    slog.Default(),
		now:       time.Now,
		buckets:   make(map[Override]*bucket),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Acquire hands out an idle connection for o, or dials a new one while the
// signature is below its maximum. It never waits for a connection to be
// released: a full signature yields ErrPoolExhausted.
func (p *Pool) Acquire(ctx context.Context, o Override) (*PooledConn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	b := p.bucket(o)
	now := p.now()

	b.mu.Lock()
	var stale []*PooledConn
	for len(b.idle) > 0 {
		last := len(b.idle) - 1
		c := b.idle[last]
		b.idle[last] = nil
		b.idle = b.idle[:last]

		if p.maxIdleTime > 0 && now.Sub(c.idleSince) > p.maxIdleTime {
			c.state = stateDiscarded
			b.total--
			stale = append(stale, c)
			continue
		}

		c.state = stateCheckedOut
		b.mu.Unlock()
		p.closeConns(ctx, stale)
		return c, nil
	}

	if b.total >= p.maxPerKey {
		b.mu.Unlock()
		p.closeConns(ctx, stale)
		return nil, ErrPoolExhausted
	}
	if p.limiter != nil && !p.limiter.Allow() {
		b.mu.Unlock()
		p.closeConns(ctx, stale)
		return nil, errors.Join(ErrPoolExhausted, ErrDialThrottled)
	}

	// Reserve the slot before dialing so concurrent callers can't overshoot.
	b.total++
	b.mu.Unlock()
	p.closeConns(ctx, stale)

	conn, err := p.dialer.Dial(ctx, o)
	if err != nil {
		b.mu.Lock()
		b.total--
		b.mu.Unlock()
		return nil, &DialError{Key: o, Err: err}
	}

	pc := &PooledConn{
		Conn:   conn,
		id:     uuid.NewString(),
		key:    o,
		bucket: b,
		state:  stateCheckedOut,
	}

	if p.closed.Load() {
		p.Invalidate(pc)
		return nil, ErrPoolClosed
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "transport connection opened",
		logger.Component("transport.pool"),
		logger.ConnectionID(pc.id),
		logger.Sender(o.String()),
	)
	return pc, nil
}

// Release returns a healthy connection to the idle set of its signature.
// Releasing a connection that is not checked out is a no-op.
func (p *Pool) Release(c *PooledConn) {
	if c == nil {
		return
	}

	b := c.bucket
	b.mu.Lock()
	if c.state != stateCheckedOut {
		b.mu.Unlock()
		return
	}
	if p.closed.Load() {
		c.state = stateDiscarded
		b.total--
		b.mu.Unlock()
		p.closeConns(context.Background(), []*PooledConn{c})
		return
	}
	c.state = stateIdle
	c.idleSince = p.now()
	b.idle = append(b.idle, c)
	b.mu.Unlock()
}

// Invalidate destroys a connection so it never returns to the idle set.
// Invalidating an already discarded connection is a no-op.
func (p *Pool) Invalidate(c *PooledConn) {
	if c == nil {
		return
	}

	b := c.bucket
	b.mu.Lock()
	switch c.state {
	case stateDiscarded:
		b.mu.Unlock()
		return
	case stateIdle:
		if i := slices.Index(b.idle, c); i >= 0 {
			b.idle = slices.Delete(b.idle, i, i+1)
		}
	}
	c.state = stateDiscarded
	b.total--
	b.mu.Unlock()

	p.closeConns(context.Background(), []*PooledConn{c})
}

// Stats reports the bucket counters for o.
func (p *Pool) Stats(o Override) Stats {
	p.mu.RLock()
	b, ok := p.buckets[o]
	p.mu.RUnlock()
	if !ok {
		return Stats{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Idle:  len(b.idle),
		InUse: b.total - len(b.idle),
		Total: b.total,
	}
}

// Close shuts every idle connection down. Connections still checked out are
// closed when they are released or invalidated. Close is idempotent.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.RLock()
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.mu.RUnlock()

	var errs []error
	for _, b := range buckets {
		b.mu.Lock()
		idle := b.idle
		b.idle = nil
		for _, c := range idle {
			c.state = stateDiscarded
		}
		b.total -= len(idle)
		b.mu.Unlock()

		for _, c := range idle {
			if err := c.Conn.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) bucket(o Override) *bucket {
	p.mu.RLock()
	b, ok := p.buckets[o]
	p.mu.RUnlock()
	if ok {
		return b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok = p.buckets[o]; !ok {
		b = &bucket{}
		p.buckets[o] = b
	}
	return b
}

func (p *Pool) closeConns(ctx context.Context, conns []*PooledConn) {
	for _, c := range conns {
		if err := c.Conn.Close(); err != nil {
			p.logger.LogAttrs(ctx, slog.LevelDebug, "transport connection close failed",
				logger.Component("transport.pool"),
				logger.ConnectionID(c.id),
				logger.Error(err),
			)
		}
	}
}
