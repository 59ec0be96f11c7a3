package email

import (
	"errors"
	"net/textproto"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/transport"
)

// Kind classifies the outcome of a send.
type Kind uint8

const (
	KindDelivered Kind = iota
	// KindPoolExhausted means no connection could be obtained for the sender.
	KindPoolExhausted
	// KindDialFailed means a new relay session could not be opened.
	KindDialFailed
	// KindTransientConnection covers network failures mid-session.
	KindTransientConnection
	// KindTransientProtocol covers temporary relay replies and protocol violations.
	KindTransientProtocol
	KindRecipientRejected
	KindSenderRejected
	KindContentRejected
	// KindInvalidMessage means the message never reached the relay.
	KindInvalidMessage
)

func (k Kind) String() string {
	switch k {
	case KindDelivered:
		return "delivered"
	case KindPoolExhausted:
		return "pool_exhausted"
	case KindDialFailed:
		return "dial_failed"
	case KindTransientConnection:
		return "transient_connection"
	case KindTransientProtocol:
		return "transient_protocol"
	case KindRecipientRejected:
		return "recipient_rejected"
	case KindSenderRejected:
		return "sender_rejected"
	case KindContentRejected:
		return "content_rejected"
	case KindInvalidMessage:
		return "invalid_message"
	default:
		return "unknown"
	}
}

// Retryable reports whether the caller may try the whole send again.
func (k Kind) Retryable() bool {
	switch k {
	case KindPoolExhausted, KindDialFailed, KindTransientConnection, KindTransientProtocol:
		return true
	default:
		return false
	}
}

// Rejected reports whether the relay refused the message on address or
// content grounds. The session that saw the rejection is still healthy.
func (k Kind) Rejected() bool {
	switch k {
	case KindRecipientRejected, KindSenderRejected, KindContentRejected:
		return true
	default:
		return false
	}
}

// Result is the outcome of Dispatcher.Send.
type Result struct {
	Kind Kind
	// Message is the relay's reply text, verbatim, for rejections and
	// protocol failures.
	Message  string
	Err      error
	Attempts int
	Duration time.Duration
}

// OK reports whether the message was accepted by the relay.
func (r Result) OK() bool { return r.Kind == KindDelivered }

// Retryable reports whether the caller may retry the send.
func (r Result) Retryable() bool { return r.Kind.Retryable() }

// classify maps a transport error onto a Kind and the relay text.
func classify(err error) (Kind, string) {
	if err == nil {
		return KindDelivered, ""
	}

	if errors.Is(err, transport.ErrPoolExhausted) {
		return KindPoolExhausted, err.Error()
	}
	if errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, transport.ErrEmptyMessage) ||
		errors.Is(err, transport.ErrNoRecipients) {
		return KindInvalidMessage, err.Error()
	}

	var dialErr *transport.DialError
	if errors.As(err, &dialErr) {
		return KindDialFailed, err.Error()
	}

	var rejected *transport.RejectedError
	if errors.As(err, &rejected) {
		switch rejected.Reason {
		case transport.RejectRecipient:
			return KindRecipientRejected, rejected.Message
		case transport.RejectSender:
			return KindSenderRejected, rejected.Message
		case transport.RejectContent:
			return KindContentRejected, rejected.Message
		}
		return KindTransientProtocol, rejected.Message
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		if reply.Code < 500 {
			return KindTransientProtocol, reply.Msg
		}
		var stage *transport.StageError
		if errors.As(err, &stage) {
			switch stage.Stage {
			case transport.StageMail:
				return KindSenderRejected, reply.Msg
			case transport.StageRcpt:
				return KindRecipientRejected, reply.Msg
			case transport.StageData:
				return KindContentRejected, reply.Msg
			}
		}
		return KindTransientProtocol, reply.Msg
	}

	var protoErr *transport.ProtocolError
	if errors.As(err, &protoErr) {
		return KindTransientProtocol, protoErr.Message
	}

	return KindTransientConnection, err.Error()
}
