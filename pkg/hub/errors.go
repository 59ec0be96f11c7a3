package hub

import "errors"

var (
	ErrHubClosed          = errors.New("hub: closed")
	ErrNilRegistry        = errors.New("hub: connection registry cannot be nil")
	ErrNotDelivered       = errors.New("hub: no connection accepted the payload")
	ErrMissingIdentity    = errors.New("hub: recipient identity is required")
	ErrMissingApplication = errors.New("hub: application name is required")
)
