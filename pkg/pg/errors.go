package pg

import "errors"

var (
	ErrFailedToOpenDBConnection = errors.New("pg: failed to open connection pool")
	ErrFailedToParseDBConfig    = errors.New("pg: failed to parse connection string")
	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed")
	ErrSchemaMissing            = errors.New("pg: notification_deliveries table is missing")
	ErrFailedToMarkDelivered    = errors.New("pg: failed to record notification deliveries")
)
