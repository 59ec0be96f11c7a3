package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/transport"
)

// Importance maps onto the Importance, Priority and X-Priority headers.
type Importance uint8

const (
	ImportanceNormal Importance = iota
	ImportanceLow
	ImportanceHigh
)

func (i Importance) String() string {
	switch i {
	case ImportanceLow:
		return "low"
	case ImportanceHigh:
		return "high"
	default:
		return "normal"
	}
}

func (i Importance) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Importance) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*i = ImportanceLow
	case "high":
		*i = ImportanceHigh
	case "", "normal":
		*i = ImportanceNormal
	default:
		return fmt.Errorf("%w: unknown importance %q", ErrInvalidMessage, b)
	}
	return nil
}

// Attachment is a named blob embedded into the message as a MIME part.
// Content is opaque; ContentType defaults to application/octet-stream.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

// Message is an outbound mail message.
type Message struct {
	From        string       `json:"from,omitempty"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc,omitempty"`
	Bcc         []string     `json:"bcc,omitempty"`
	ReplyTo     []string     `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	HTMLBody    string       `json:"html_body,omitempty"`
	TextBody    string       `json:"text_body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Importance  Importance   `json:"importance,omitempty"`
	Tag         string       `json:"tag,omitempty"`

	// Account selects an alternate sender account. The zero value uses the
	// relay's default account.
	Account transport.Override `json:"-"`
}

// Validate checks the fields every relay needs.
func (m Message) Validate() error {
	var errs []error
	if m.From == "" {
		errs = append(errs, ErrNoSender)
	}
	if len(m.To)+len(m.Cc)+len(m.Bcc) == 0 {
		errs = append(errs, ErrNoRecipients)
	}
	for _, a := range m.Attachments {
		if a.Name == "" {
			errs = append(errs, errors.New("email: attachment name is required"))
			break
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidMessage}, errs...)...)
	}
	return nil
}

// MessageStore resolves previously stored messages by id.
// Implementations return ErrMessageNotFound for unknown ids.
type MessageStore interface {
	Lookup(ctx context.Context, id string) (Message, error)
}

// MessageStoreFunc adapts a function to the MessageStore interface.
type MessageStoreFunc func(ctx context.Context, id string) (Message, error)

func (f MessageStoreFunc) Lookup(ctx context.Context, id string) (Message, error) {
	return f(ctx, id)
}
