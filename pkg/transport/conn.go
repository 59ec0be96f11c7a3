package transport

import (
	"context"
	"io"
	"slices"
	"time"
)

// Attachment is a named blob carried alongside the wire message for
// API-style relays that take attachments as separate fields.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Envelope is everything a connection needs to hand one message to the relay.
// SMTP connections only use From, the recipient lists and Raw; API relays
// use the structured fields.
type Envelope struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	ReplyTo     []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Tag         string
	Headers     map[string]string
	Attachments []Attachment

	// Raw writes the complete RFC 5322 message.
	Raw io.WriterTo
}

// Recipients returns every envelope recipient: To, then Cc, then Bcc.
func (e Envelope) Recipients() []string {
	return slices.Concat(e.To, e.Cc, e.Bcc)
}

// Conn is a live session with the relay.
// A Conn is used by one caller at a time; the pool guarantees that.
type Conn interface {
	// Send transfers a single message.
	Send(ctx context.Context, env Envelope) error
	// Reset clears any half-finished transaction so the session can be reused.
	Reset() error
	// Close tears the session down.
	Close() error
}

// Dialer opens new sessions for a sender override.
type Dialer interface {
	Dial(ctx context.Context, o Override) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, o Override) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, o Override) (Conn, error) {
	return f(ctx, o)
}

type connState uint8

const (
	stateCheckedOut connState = iota
	stateIdle
	stateDiscarded
)

// PooledConn is a Conn owned by a Pool. It is handed out by Acquire and must
// be given back exactly once through Release or Invalidate.
type PooledConn struct {
	Conn

	id        string
	key       Override
	bucket    *bucket
	state     connState // guarded by bucket.mu
	idleSince time.Time // guarded by bucket.mu
}

// ID is a process-unique identifier of the underlying session.
func (c *PooledConn) ID() string {
	return c.id
}

// Key is the sender override the connection was created for.
func (c *PooledConn) Key() Override {
	return c.key
}
