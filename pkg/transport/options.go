package transport

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithMaxIdleTime discards idle connections older than d on the next Acquire
// for their signature. Zero keeps idle connections forever.
func WithMaxIdleTime(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.maxIdleTime = d
		}
	}
}

// WithDialRateLimit caps how fast new connections are opened across all
// signatures. Acquire never waits for the limiter: a throttled Acquire fails
// with ErrPoolExhausted so callers can back off.
func WithDialRateLimit(perSecond float64, burst int) PoolOption {
	return func(p *Pool) {
		if perSecond > 0 && burst > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithPoolLogger sets the logger for the Pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func withClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		p.now = now
	}
}
