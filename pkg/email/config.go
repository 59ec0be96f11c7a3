package email

import "time"

// Config holds dispatcher settings. Relay settings live in transport.Config.
type Config struct {
	RetryAttempts  uint64        `env:"MAIL_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"MAIL_RETRY_BASE_DELAY" envDefault:"500ms"`
}

// Options translates the config into dispatcher options.
func (c Config) Options() []DispatcherOption {
	return []DispatcherOption{WithRetry(c.RetryAttempts, c.RetryBaseDelay)}
}
