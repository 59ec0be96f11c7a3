package realtime

import (
	"log/slog"
	"time"
)

// CarrierOption configures a Carrier.
type CarrierOption func(*Carrier)

// WithAckBatchSize sets how many delivered ids trigger an acknowledgment flush.
func WithAckBatchSize(n int) CarrierOption {
	return func(c *Carrier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithAckChannel names the channel passed to the ack sink.
func WithAckChannel(channel string) CarrierOption {
	return func(c *Carrier) {
		if channel != "" {
			c.channel = channel
		}
	}
}

// WithAckRetry sets how often a failed flush is retried and the initial
// backoff between attempts.
func WithAckRetry(retries uint64, backoff time.Duration) CarrierOption {
	return func(c *Carrier) {
		c.ackRetries = retries
		if backoff > 0 {
			c.ackBackoff = backoff
		}
	}
}

// WithFlushTimeout bounds the final flush performed on shutdown.
func WithFlushTimeout(d time.Duration) CarrierOption {
	return func(c *Carrier) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

// WithFlushErrorHandler registers a callback for flushes that failed after
// every retry. The ids stay pending and are sent with the next flush.
func WithFlushErrorHandler(fn func(ids []string, err error)) CarrierOption {
	return func(c *Carrier) {
		c.onFlushError = fn
	}
}

// WithCarrierLogger sets a custom logger. Nil is ignored.
func WithCarrierLogger(l *slog.Logger) CarrierOption {
	return func(c *Carrier) {
		if l != nil {
			c.logger = l
		}
	}
}
