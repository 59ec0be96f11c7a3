package email

import (
	"log/slog"
	"time"
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDefaultSender sets the From address used when a message has none.
func WithDefaultSender(from string) DispatcherOption {
	return func(d *Dispatcher) {
		d.defaultSender = from
	}
}

// WithDispatcherLogger sets a custom logger. Nil is ignored.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder registers a collaborator that is told about every outcome,
// typically a history store.
func WithRecorder(r OutcomeRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithRetry configures SendWithRetry: at most attempts retries after the
// first try, with exponential backoff starting at base.
func WithRetry(attempts uint64, base time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.retryAttempts = attempts
		if base > 0 {
			d.retryBase = base
		}
	}
}
