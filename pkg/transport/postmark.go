package transport

import (
	"cmp"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"
)

// Postmark API error codes that map onto message-level rejections.
// https://postmarkapp.com/developer/api/overview#error-codes
const (
	postmarkInvalidEmailRequest = 300
	postmarkSenderNotFound      = 400
	postmarkSenderNotConfirmed  = 401
	postmarkInvalidJSON         = 402
	postmarkIncompatibleJSON    = 403
	postmarkInactiveRecipient   = 406
	postmarkForbiddenAttachment = 411
	postmarkAccountPending      = 412
	postmarkAccountMayNotSend   = 413
)

// PostmarkDialer opens "sessions" against the Postmark HTTP API.
// Sessions are cheap, but pooling still bounds concurrent requests per
// server token and keeps the dispatcher independent of the relay kind.
type PostmarkDialer struct {
	cfg PostmarkConfig
}

// NewPostmarkDialer creates a Postmark dialer. The server token may be left
// empty when every sender account carries its own Override.Token.
func NewPostmarkDialer(cfg PostmarkConfig) (*PostmarkDialer, error) {
	return &PostmarkDialer{cfg: cfg}, nil
}

// Dial uses the account token when set and the configured server token
// otherwise. It fails with ErrInvalidConfig when neither is available.
func (d *PostmarkDialer) Dial(_ context.Context, o Override) (Conn, error) {
	token := cmp.Or(o.Token, d.cfg.ServerToken)
	if token == "" {
		return nil, fmt.Errorf("%w: no Postmark server token for sender %s", ErrInvalidConfig, o)
	}
	return &postmarkConn{client: postmark.NewClient(token, d.cfg.AccountToken)}, nil
}

type postmarkConn struct {
	client *postmark.Client
}

func (c *postmarkConn) Send(ctx context.Context, env Envelope) error {
	if len(env.Recipients()) == 0 {
		return ErrNoRecipients
	}

	msg := postmark.Email{
		From:     env.From,
		To:       strings.Join(env.To, ","),
		Cc:       strings.Join(env.Cc, ","),
		Bcc:      strings.Join(env.Bcc, ","),
		ReplyTo:  strings.Join(env.ReplyTo, ","),
		Subject:  env.Subject,
		Tag:      env.Tag,
		HTMLBody: env.HTMLBody,
		TextBody: env.TextBody,
	}
	for name, value := range env.Headers {
		msg.Headers = append(msg.Headers, postmark.Header{Name: name, Value: value})
	}
	for _, a := range env.Attachments {
		msg.Attachments = append(msg.Attachments, postmark.Attachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}

	resp, err := c.client.SendEmail(ctx, msg)
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return postmarkError(int64(resp.ErrorCode), resp.Message)
	}
	return nil
}

func (c *postmarkConn) Reset() error { return nil }

func (c *postmarkConn) Close() error { return nil }

// postmarkError maps an API error code onto the transport error taxonomy.
func postmarkError(code int64, message string) error {
	switch code {
	case postmarkInactiveRecipient:
		return &RejectedError{Reason: RejectRecipient, Message: message}
	case postmarkSenderNotFound, postmarkSenderNotConfirmed, postmarkAccountPending, postmarkAccountMayNotSend:
		return &RejectedError{Reason: RejectSender, Message: message}
	case postmarkInvalidEmailRequest, postmarkInvalidJSON, postmarkIncompatibleJSON, postmarkForbiddenAttachment:
		return &RejectedError{Reason: RejectContent, Message: message}
	default:
		return &ProtocolError{Code: int(code), Message: message}
	}
}
