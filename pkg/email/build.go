package email

import (
	"bytes"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/dmitrymomot/notifykit/pkg/transport"
)

const defaultAttachmentType = "application/octet-stream"

var importanceLevels = map[Importance]mail.Importance{
	ImportanceLow:    mail.ImportanceLow,
	ImportanceNormal: mail.ImportanceNormal,
	ImportanceHigh:   mail.ImportanceHigh,
}

// buildEnvelope renders msg into an RFC 5322 message and the envelope the
// relay needs. Address syntax errors surface here, before any connection
// is taken from the pool.
func buildEnvelope(msg Message) (transport.Envelope, error) {
	if err := msg.Validate(); err != nil {
		return transport.Envelope{}, err
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return transport.Envelope{}, errors.Join(ErrInvalidMessage, err)
	}
	if len(msg.To) > 0 {
		if err := m.To(msg.To...); err != nil {
			return transport.Envelope{}, errors.Join(ErrInvalidMessage, err)
		}
	}
	if len(msg.Cc) > 0 {
		if err := m.Cc(msg.Cc...); err != nil {
			return transport.Envelope{}, errors.Join(ErrInvalidMessage, err)
		}
	}
	if len(msg.Bcc) > 0 {
		if err := m.Bcc(msg.Bcc...); err != nil {
			return transport.Envelope{}, errors.Join(ErrInvalidMessage, err)
		}
	}
	if len(msg.ReplyTo) > 0 {
		replyTo, err := parseAddressList(msg.ReplyTo)
		if err != nil {
			return transport.Envelope{}, errors.Join(ErrInvalidMessage, err)
		}
		m.SetGenHeader(mail.HeaderReplyTo, replyTo)
	}

	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	m.SetImportance(importanceLevels[msg.Importance])

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	attachments := make([]transport.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = defaultAttachmentType
		}
		m.AttachReadSeeker(a.Name, bytes.NewReader(a.Content), mail.WithFileContentType(mail.ContentType(ct)))
		attachments = append(attachments, transport.Attachment{Name: a.Name, ContentType: ct, Content: a.Content})
	}

	env := transport.Envelope{
		From:        msg.From,
		To:          msg.To,
		Cc:          msg.Cc,
		Bcc:         msg.Bcc,
		ReplyTo:     msg.ReplyTo,
		Subject:     msg.Subject,
		HTMLBody:    msg.HTMLBody,
		TextBody:    msg.TextBody,
		Tag:         msg.Tag,
		Attachments: attachments,
		Raw:         m,
	}
	if msg.Importance != ImportanceNormal {
		env.Headers = map[string]string{"X-Priority": xPriority(msg.Importance)}
	}
	return env, nil
}

// parseAddressList checks every address and renders them as one header value.
func parseAddressList(addrs []string) (string, error) {
	parsed := make([]string, 0, len(addrs))
	for _, a := range addrs {
		addr, err := netmail.ParseAddress(a)
		if err != nil {
			return "", fmt.Errorf("reply-to %q: %w", a, err)
		}
		parsed = append(parsed, addr.String())
	}
	return strings.Join(parsed, ", "), nil
}

func xPriority(i Importance) string {
	switch i {
	case ImportanceLow:
		return "5"
	case ImportanceHigh:
		return "1"
	default:
		return "3"
	}
}
