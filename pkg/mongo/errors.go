package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("mongo: failed to connect")
	ErrHealthcheckFailed      = errors.New("mongo: healthcheck failed")
	ErrFailedToMarkDelivered  = errors.New("mongo: failed to record notification deliveries")
)
