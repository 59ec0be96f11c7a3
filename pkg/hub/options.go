package hub

import (
	"log/slog"
	"net/http"
)

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-connection buffer. Pushes to a full buffer
// skip that connection.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		h.bufferSize = max(n, 1)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// IdentifyFunc extracts the recipient identity and application from a
// stream request. Authentication happens before the request reaches the hub.
type IdentifyFunc func(r *http.Request) (identity, application string, err error)

// QueryIdentity reads the "identity" and "app" query parameters.
func QueryIdentity(r *http.Request) (string, string, error) {
	q := r.URL.Query()
	return q.Get("identity"), q.Get("app"), nil
}
