package transport

import (
	"errors"
	"fmt"
)

var (
	ErrPoolExhausted   = errors.New("transport: connection pool exhausted")
	ErrPoolClosed      = errors.New("transport: connection pool closed")
	ErrInvalidPoolSize = errors.New("transport: max connections per sender must be positive")
	ErrDialFailed      = errors.New("transport: failed to open connection")
	ErrDialThrottled   = errors.New("transport: connection creation throttled")
	ErrInvalidConfig   = errors.New("transport: invalid config")
	ErrEmptyMessage    = errors.New("transport: envelope has no wire message")
	ErrNoRecipients    = errors.New("transport: envelope has no recipients")
	ErrNilDialer       = errors.New("transport: dialer cannot be nil")
)

// Stage identifies the relay command that failed.
type Stage string

const (
	StageMail Stage = "MAIL"
	StageRcpt Stage = "RCPT"
	StageData Stage = "DATA"
)

// StageError tags a relay failure with the command it happened on.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transport: %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RejectReason tells which part of a message the relay refused.
type RejectReason int

const (
	RejectRecipient RejectReason = iota + 1
	RejectSender
	RejectContent
)

func (r RejectReason) String() string {
	switch r {
	case RejectRecipient:
		return "recipient"
	case RejectSender:
		return "sender"
	case RejectContent:
		return "content"
	default:
		return "unknown"
	}
}

// RejectedError is returned by connections that talk to an API-style relay
// and know that the message itself was refused. The connection stays usable.
type RejectedError struct {
	Reason  RejectReason
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transport: relay rejected %s: %s", e.Reason, e.Message)
}

// ProtocolError reports a relay-level violation that is not tied to the
// message content, e.g. an unexpected reply code or a revoked API token.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("transport: relay protocol error %d: %s", e.Code, e.Message)
}

// DialError wraps a connection creation failure for a sender signature.
type DialError struct {
	Key Override
	Err error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrDialFailed, e.Key, e.Err)
}

func (e *DialError) Unwrap() []error {
	return []error{ErrDialFailed, e.Err}
}
