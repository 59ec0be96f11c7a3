package realtime

import "errors"

var (
	ErrNilQueue       = errors.New("realtime: queue cannot be nil")
	ErrNilResolver    = errors.New("realtime: connection resolver cannot be nil")
	ErrNilHubSender   = errors.New("realtime: hub sender cannot be nil")
	ErrNilAckSink     = errors.New("realtime: ack sink cannot be nil")
	ErrNilRedisClient = errors.New("realtime: redis client cannot be nil")
	ErrCarrierRunning = errors.New("realtime: carrier is already running")
	ErrAckFlushFailed = errors.New("realtime: acknowledgment flush failed")

	// ErrDeliveryDropped marks notifications with no live connection in
	// logs. It is never returned to callers.
	ErrDeliveryDropped = errors.New("realtime: no live connection for recipient")
)
