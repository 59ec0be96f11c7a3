package httpserver

import (
	"log/slog"
	"net"
	"time"
)

type Option func(*config)

// WithAddr sets the listen address, ":8080" by default.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty listen address")
	}
	return func(c *config) { c.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	mustBePositive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout bounds response writes. Servers hosting event streams
// should not set it.
func WithWriteTimeout(d time.Duration) Option {
	mustBePositive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	mustBePositive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout caps how long Run waits for in-flight requests after
// its context is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	mustBePositive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger replaces slog.Default(). A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnListen registers a callback that receives the bound address once
// the listener is open.
func WithOnListen(fn func(net.Addr)) Option {
	if fn == nil {
		panic("httpserver: nil listen callback")
	}
	return func(c *config) { c.onListen = append(c.onListen, fn) }
}

func mustBePositive(name string, d time.Duration) {
	if d <= 0 {
		panic("httpserver: " + name + " must be positive")
	}
}
