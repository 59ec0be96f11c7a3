package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// SMTPDialer opens sessions with an SMTP relay.
type SMTPDialer struct {
	cfg       Config
	tlsConfig *tls.Config
}

// NewSMTPDialer validates cfg and returns a dialer for it.
func NewSMTPDialer(cfg Config) (*SMTPDialer, error) {
	if err := cfg.validateSMTP(); err != nil {
		return nil, err
	}
	if cfg.HeloName == "" {
		cfg.HeloName = "localhost"
	}
	return &SMTPDialer{
		cfg: cfg,
		tlsConfig: &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-hosted relays
			MinVersion:         tls.VersionTLS12,
		},
	}, nil
}

// Dial connects, greets, upgrades to TLS when offered and authenticates.
// The username/password of o replace the configured credentials.
func (d *SMTPDialer) Dial(ctx context.Context, o Override) (Conn, error) {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	nd := net.Dialer{Timeout: d.cfg.DialTimeout}

	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if d.cfg.ImplicitTLS {
		raw = tls.Client(raw, d.tlsConfig)
	}

	// Handshake must not hang on a silent relay.
	if d.cfg.DialTimeout > 0 {
		_ = raw.SetDeadline(time.Now().Add(d.cfg.DialTimeout))
	}

	client, err := d.handshake(raw, o)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	_ = raw.SetDeadline(time.Time{})

	return &smtpConn{client: client, netConn: raw, sendTimeout: d.cfg.SendTimeout}, nil
}

func (d *SMTPDialer) handshake(raw net.Conn, o Override) (*smtp.Client, error) {
	client, err := smtp.NewClient(raw, d.cfg.Host)
	if err != nil {
		return nil, err
	}
	if err := client.Hello(d.cfg.HeloName); err != nil {
		return nil, err
	}
	if !d.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(d.tlsConfig); err != nil {
				return nil, err
			}
		}
	}

	username, password := d.cfg.Username, d.cfg.Password
	if o.Username != "" {
		username, password = o.Username, o.Password
	}
	if username == "" {
		return client, nil
	}
	if ok, _ := client.Extension("AUTH"); !ok {
		return nil, errors.New("relay does not support AUTH")
	}
	if err := client.Auth(smtp.PlainAuth("", username, password, d.cfg.Host)); err != nil {
		return nil, err
	}
	return client, nil
}

type smtpConn struct {
	client      *smtp.Client
	netConn     net.Conn
	sendTimeout time.Duration
}

func (c *smtpConn) Send(ctx context.Context, env Envelope) error {
	if env.Raw == nil {
		return ErrEmptyMessage
	}
	rcpts := env.Recipients()
	if len(rcpts) == 0 {
		return ErrNoRecipients
	}

	deadline, ok := ctx.Deadline()
	if !ok && c.sendTimeout > 0 {
		deadline = time.Now().Add(c.sendTimeout)
	}
	_ = c.netConn.SetDeadline(deadline)
	defer func() { _ = c.netConn.SetDeadline(time.Time{}) }()

	// Cancellation interrupts blocked reads and writes.
	stop := context.AfterFunc(ctx, func() {
		_ = c.netConn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.client.Mail(env.From); err != nil {
		return &StageError{Stage: StageMail, Err: err}
	}
	for _, rcpt := range rcpts {
		if err := c.client.Rcpt(rcpt); err != nil {
			return &StageError{Stage: StageRcpt, Err: err}
		}
	}

	w, err := c.client.Data()
	if err != nil {
		return &StageError{Stage: StageData, Err: err}
	}
	if _, err := env.Raw.WriteTo(w); err != nil {
		_ = w.Close()
		return &StageError{Stage: StageData, Err: fmt.Errorf("write message: %w", err)}
	}
	if err := w.Close(); err != nil {
		return &StageError{Stage: StageData, Err: err}
	}
	return nil
}

func (c *smtpConn) Reset() error {
	return c.client.Reset()
}

func (c *smtpConn) Close() error {
	return c.client.Close()
}
