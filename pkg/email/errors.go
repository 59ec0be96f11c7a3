package email

import "errors"

var (
	ErrInvalidMessage  = errors.New("email: invalid message")
	ErrNoSender        = errors.New("email: message has no sender")
	ErrNoRecipients    = errors.New("email: message has no recipients")
	ErrMessageNotFound = errors.New("email: stored message not found")
	ErrNilPool         = errors.New("email: connection pool cannot be nil")
)
