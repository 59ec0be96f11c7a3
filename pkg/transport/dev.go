package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// DevDialer opens sessions that write every message to a directory instead
// of talking to a relay. Each message becomes an .eml file holding the wire
// message and a .json file with the envelope metadata.
type DevDialer struct {
	dir string
	seq atomic.Uint64
}

// NewDevDialer creates a development dialer. The directory is created on
// first send.
func NewDevDialer(dir string) *DevDialer {
	return &DevDialer{dir: dir}
}

func (d *DevDialer) Dial(_ context.Context, o Override) (Conn, error) {
	return &devConn{dialer: d, override: o}, nil
}

type devConn struct {
	dialer   *DevDialer
	override Override
}

type devMetadata struct {
	Timestamp string   `json:"timestamp"`
	Sender    string   `json:"sender"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Cc        []string `json:"cc,omitempty"`
	Bcc       []string `json:"bcc,omitempty"`
	Subject   string   `json:"subject"`
	Tag       string   `json:"tag,omitempty"`
}

func (c *devConn) Send(ctx context.Context, env Envelope) error {
	if env.Raw == nil {
		return ErrEmptyMessage
	}
	if len(env.Recipients()) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(c.dialer.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	now := time.Now()
	identifier := env.Tag
	if identifier == "" {
		identifier = env.Subject
	}
	// Sequence keeps names unique when several messages share a second.
	base := fmt.Sprintf("%s_%04d_%s", now.Format("2006_01_02_150405"), c.dialer.seq.Add(1), sanitizeFilename(identifier))

	var buf bytes.Buffer
	if _, err := env.Raw.WriteTo(&buf); err != nil {
		return &StageError{Stage: StageData, Err: err}
	}
	if err := os.WriteFile(filepath.Join(c.dialer.dir, base+".eml"), buf.Bytes(), 0o644); err != nil {
		return &StageError{Stage: StageData, Err: err}
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		Sender:    c.override.String(),
		From:      env.From,
		To:        env.To,
		Cc:        env.Cc,
		Bcc:       env.Bcc,
		Subject:   env.Subject,
		Tag:       env.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dialer.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (c *devConn) Reset() error { return nil }

func (c *devConn) Close() error { return nil }

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename turns a subject or tag into a short, safe file name.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
