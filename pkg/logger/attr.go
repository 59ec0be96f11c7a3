package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers keep key names consistent across packages. Helpers that
// take an optional value return the zero Attr when it is missing, and slog
// drops zero Attrs from the record.

func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors logs the non-nil errs as an "errors" group indexed by position.
func Errors(errs ...error) slog.Attr {
	var items []slog.Attr
	for i, err := range errs {
		if err == nil {
			continue
		}
		items = append(items, slog.Any(strconv.Itoa(i), err))
	}
	if len(items) == 0 {
		return slog.Attr{}
	}
	return Group("errors", items...)
}

func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

func NotificationID(id string) slog.Attr {
	return optionalString("notification_id", id)
}

// ConnectionID identifies a live stream or a pooled relay session.
func ConnectionID(id string) slog.Attr {
	return optionalString("connection_id", id)
}

func Recipient(identity string) slog.Attr { return slog.String("recipient", identity) }

func Application(name string) slog.Attr { return slog.String("application", name) }

// Sender expects an already redacted account description.
func Sender(s string) slog.Attr { return slog.String("sender", s) }

func Outcome(kind string) slog.Attr { return slog.String("outcome", kind) }

func BatchSize(n int) slog.Attr { return slog.Int("batch_size", n) }

func RetryCount(n int) slog.Attr { return slog.Int("retry_count", n) }

func Duration(d time.Duration) slog.Attr { return slog.Duration("duration", d) }

// Component names the subsystem that produced the record.
func Component(name string) slog.Attr { return slog.String("component", name) }

func optionalString(key, v string) slog.Attr {
	if v == "" {
		return slog.Attr{}
	}
	return slog.String(key, v)
}
