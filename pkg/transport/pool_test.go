package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	closed atomic.Int32
}

func (c *fakeConn) Send(context.Context, Envelope) error { return nil }
func (c *fakeConn) Reset() error                         { return nil }
func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	dials int
	err   error
	conns []*fakeConn
}

func (d *fakeDialer) Dial(context.Context, Override) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func TestNewPool(t *testing.T) {
	t.Parallel()

	t.Run("requires positive maximum", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{0, -1} {
			p, err := NewPool(&fakeDialer{}, n)
			assert.ErrorIs(t, err, ErrInvalidPoolSize)
			assert.Nil(t, p)
		}
	})

	t.Run("requires dialer", func(t *testing.T) {
		t.Parallel()
		p, err := NewPool(nil, 1)
		assert.ErrorIs(t, err, ErrNilDialer)
		assert.Nil(t, p)
	})
}

func TestPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	t.Run("reuses released connection", func(t *testing.T) {
		t.Parallel()
		d := &fakeDialer{}
		p, err := NewPool(d, 2)
		require.NoError(t, err)

		c1, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		p.Release(c1)

		c2, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		assert.Same(t, c1, c2)
		assert.Equal(t, 1, d.dialCount())
	})

	t.Run("partitions by override", func(t *testing.T) {
		t.Parallel()
		d := &fakeDialer{}
		p, err := NewPool(d, 1)
		require.NoError(t, err)

		billing := Override{From: "billing@example.com"}
		c1, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		c2, err := p.Acquire(context.Background(), billing)
		require.NoError(t, err)
		assert.NotEqual(t, c1.ID(), c2.ID())
		assert.Equal(t, billing, c2.Key())

		p.Release(c2)
		_, err = p.Acquire(context.Background(), Override{})
		assert.ErrorIs(t, err, ErrPoolExhausted)

		c3, err := p.Acquire(context.Background(), billing)
		require.NoError(t, err)
		assert.Same(t, c2, c3)
	})

	t.Run("release twice is a no-op", func(t *testing.T) {
		t.Parallel()
		p, err := NewPool(&fakeDialer{}, 2)
		require.NoError(t, err)

		c, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		p.Release(c)
		p.Release(c)

		assert.Equal(t, Stats{Idle: 1, InUse: 0, Total: 1}, p.Stats(Override{}))
	})

	t.Run("release after invalidate keeps connection out", func(t *testing.T) {
		t.Parallel()
		p, err := NewPool(&fakeDialer{}, 2)
		require.NoError(t, err)

		c, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		p.Invalidate(c)
		p.Release(c)

		assert.Equal(t, Stats{}, p.Stats(Override{}))
	})
}

func TestPool_ExhaustedWithThreeConcurrentAcquires(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p, err := NewPool(d, 2)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		ok        atomic.Int32
		exhausted atomic.Int32
		start     = make(chan struct{})
	)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := p.Acquire(context.Background(), Override{})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrPoolExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, int32(1), exhausted.Load())
	assert.Equal(t, 2, d.dialCount())
	assert.Equal(t, Stats{Idle: 0, InUse: 2, Total: 2}, p.Stats(Override{}))
}

func TestPool_ExclusiveOwnership(t *testing.T) {
	t.Parallel()

	const (
		maxConns   = 4
		goroutines = 16
		iterations = 200
	)
	p, err := NewPool(&fakeDialer{}, maxConns)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		holders = make(map[string]int)
		wg      sync.WaitGroup
	)
	for g := range goroutines {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for range iterations {
				c, err := p.Acquire(context.Background(), Override{})
				if err != nil {
					assert.ErrorIs(t, err, ErrPoolExhausted)
					continue
				}

				mu.Lock()
				if owner, held := holders[c.ID()]; held {
					t.Errorf("connection %s held by %d and %d", c.ID(), owner, g)
				}
				holders[c.ID()] = g
				mu.Unlock()

				time.Sleep(time.Microsecond)

				mu.Lock()
				delete(holders, c.ID())
				mu.Unlock()
				p.Release(c)
			}
		}(g)
	}
	wg.Wait()

	stats := p.Stats(Override{})
	assert.LessOrEqual(t, stats.Total, maxConns)
	assert.Equal(t, 0, stats.InUse)
}

func TestPool_Invalidate(t *testing.T) {
	t.Parallel()

	t.Run("twice keeps counters intact", func(t *testing.T) {
		t.Parallel()
		d := &fakeDialer{}
		p, err := NewPool(d, 2)
		require.NoError(t, err)

		c1, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		c2, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		p.Release(c2)

		p.Invalidate(c1)
		p.Invalidate(c1)

		assert.Equal(t, Stats{Idle: 1, InUse: 0, Total: 1}, p.Stats(Override{}))
		assert.Equal(t, int32(1), d.conns[0].closed.Load())

		// Freed slot can be used again.
		c3, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		c4, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		assert.NotEqual(t, c3.ID(), c4.ID())
	})

	t.Run("idle connection is removed from idle set", func(t *testing.T) {
		t.Parallel()
		p, err := NewPool(&fakeDialer{}, 1)
		require.NoError(t, err)

		c, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		p.Release(c)
		p.Invalidate(c)

		assert.Equal(t, Stats{}, p.Stats(Override{}))
		c2, err := p.Acquire(context.Background(), Override{})
		require.NoError(t, err)
		assert.NotSame(t, c, c2)
	})
}

func TestPool_DialFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("no such host")
	d := &fakeDialer{err: boom}
	p, err := NewPool(d, 1)
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), Override{From: "a@example.com", Password: "secret"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDialFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, err.Error(), "secret")

	var dialErr *DialError
	require.ErrorAs(t, err, &dialErr)
	assert.Equal(t, "a@example.com", dialErr.Key.From)

	// The reserved slot is given back.
	assert.Equal(t, Stats{}, p.Stats(Override{From: "a@example.com", Password: "secret"}))
	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()
	_, err = p.Acquire(context.Background(), Override{From: "a@example.com", Password: "secret"})
	assert.NoError(t, err)
}

func TestPool_MaxIdleTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	d := &fakeDialer{}
	p, err := NewPool(d, 1, WithMaxIdleTime(time.Minute), withClock(clock))
	require.NoError(t, err)

	c1, err := p.Acquire(context.Background(), Override{})
	require.NoError(t, err)
	p.Release(c1)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	c2, err := p.Acquire(context.Background(), Override{})
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, int32(1), d.conns[0].closed.Load())
	assert.Equal(t, Stats{Idle: 0, InUse: 1, Total: 1}, p.Stats(Override{}))
}

func TestPool_DialRateLimit(t *testing.T) {
	t.Parallel()

	p, err := NewPool(&fakeDialer{}, 5, WithDialRateLimit(0.001, 1))
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), Override{})
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), Override{})
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.ErrorIs(t, err, ErrDialThrottled)
	assert.Equal(t, Stats{Idle: 0, InUse: 1, Total: 1}, p.Stats(Override{}))
}

func TestPool_Close(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p, err := NewPool(d, 2)
	require.NoError(t, err)

	idle, err := p.Acquire(context.Background(), Override{})
	require.NoError(t, err)
	busy, err := p.Acquire(context.Background(), Override{})
	require.NoError(t, err)
	p.Release(idle)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.Equal(t, int32(1), d.conns[0].closed.Load())
	assert.Equal(t, int32(0), d.conns[1].closed.Load())

	_, err = p.Acquire(context.Background(), Override{})
	assert.ErrorIs(t, err, ErrPoolClosed)

	p.Release(busy)
	assert.Equal(t, int32(1), d.conns[1].closed.Load())
	assert.Equal(t, Stats{}, p.Stats(Override{}))
}
