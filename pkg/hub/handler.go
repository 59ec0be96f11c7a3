package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Handler streams pushed payloads to the client as datastar signal patches.
// The first event carries the connection id; every notification arrives
// under the "notification" signal.
func (h *Hub) Handler(identify IdentifyFunc) http.HandlerFunc {
	if identify == nil {
		identify = QueryIdentity
	}
	return func(w http.ResponseWriter, r *http.Request) {
		identity, application, err := identify(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		sub, err := h.Connect(r.Context(), identity, application)
		switch {
		case errors.Is(err, ErrMissingIdentity), errors.Is(err, ErrMissingApplication):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		sse := datastar.NewSSE(w, r)
		hello, err := json.Marshal(map[string]string{"connectionId": sub.ID})
		if err != nil {
			return
		}
		if err := sse.PatchSignals(hello); err != nil {
			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case payload, ok := <-sub.Messages():
				if !ok {
					return
				}
				if err := sse.PatchSignals(notificationSignal(payload)); err != nil {
					h.logger.LogAttrs(r.Context(), slog.LevelDebug, "stream write failed",
						logger.ConnectionID(sub.ID),
						logger.Error(err),
					)
					return
				}
			}
		}
	}
}

// notificationSignal wraps payload as {"notification": ...}. JSON payloads
// are embedded as-is, anything else becomes a string.
func notificationSignal(payload []byte) []byte {
	if json.Valid(payload) {
		out := make([]byte, 0, len(payload)+18)
		out = append(out, `{"notification":`...)
		out = append(out, payload...)
		return append(out, '}')
	}
	out, _ := json.Marshal(map[string]string{"notification": string(payload)})
	return out
}
