package main

import "time"

// appConfig holds process-level settings. Component settings live in each
// package's Config.
type appConfig struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	ServiceName   string        `env:"SERVICE_NAME" envDefault:"notifyd"`
	EnvFiles      []string      `env:"ENV_FILES" envSeparator:","`
	AckStore      string        `env:"ACK_STORE" envDefault:"log"` // log, postgres or mongo
	HealthTimeout time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"3s"`
	MaxBodyBytes  int64         `env:"API_MAX_BODY_BYTES" envDefault:"10485760"`
}

const (
	ackStoreLog      = "log"
	ackStorePostgres = "postgres"
	ackStoreMongo    = "mongo"

	queueDriverMemory = "memory"
	queueDriverRedis  = "redis"

	mailDriverSMTP     = "smtp"
	mailDriverPostmark = "postmark"
	mailDriverDev      = "dev"
)
