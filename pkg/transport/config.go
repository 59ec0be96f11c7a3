package transport

import (
	"fmt"
	"time"
)

// Config describes the default relay account.
// MaxConnsPerSender has no default on purpose: the pool size must be an
// explicit deployment decision.
type Config struct {
	Driver             string        `env:"MAIL_DRIVER" envDefault:"smtp"` // smtp, postmark or dev
	Host               string        `env:"SMTP_HOST"`
	Port               int           `env:"SMTP_PORT" envDefault:"587"`
	Username           string        `env:"SMTP_USERNAME"`
	Password           string        `env:"SMTP_PASSWORD"`
	SenderEmail        string        `env:"SENDER_EMAIL,required"`
	HeloName           string        `env:"SMTP_HELO_NAME" envDefault:"localhost"`
	ImplicitTLS        bool          `env:"SMTP_IMPLICIT_TLS" envDefault:"false"`
	InsecureSkipVerify bool          `env:"SMTP_INSECURE_SKIP_VERIFY" envDefault:"false"`
	DialTimeout        time.Duration `env:"SMTP_DIAL_TIMEOUT" envDefault:"10s"`
	SendTimeout        time.Duration `env:"SMTP_SEND_TIMEOUT" envDefault:"30s"`
	MaxConnsPerSender  int           `env:"MAIL_POOL_MAX_PER_SENDER,required"`
	MaxIdleTime        time.Duration `env:"MAIL_POOL_MAX_IDLE_TIME" envDefault:"5m"`
	DialRatePerSecond  float64       `env:"MAIL_POOL_DIAL_RATE" envDefault:"0"`
	DialBurst          int           `env:"MAIL_POOL_DIAL_BURST" envDefault:"1"`
	AccountsFile       string        `env:"MAIL_ACCOUNTS_FILE"`
	DevOutputDir       string        `env:"MAIL_DEV_DIR" envDefault:"./mail-output"`
}

// PostmarkConfig holds credentials for the Postmark API relay.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

// PoolOptions translates the pool related settings into options.
func (c Config) PoolOptions() []PoolOption {
	opts := []PoolOption{WithMaxIdleTime(c.MaxIdleTime)}
	if c.DialRatePerSecond > 0 {
		opts = append(opts, WithDialRateLimit(c.DialRatePerSecond, c.DialBurst))
	}
	return opts
}

func (c Config) validateSMTP() error {
	if c.Host == "" {
		return fmt.Errorf("%w: SMTP host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: SMTP port %d is out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}
