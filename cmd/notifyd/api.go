package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/hub"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/realtime"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/pkg/transport"
)

var (
	errUnsupportedMediaType = errors.New("content type must be application/json")
	errMalformedBody        = errors.New("malformed request body")
	errUnknownAccount       = errors.New("unknown sender account")
	errMissingRecipient     = errors.New("recipient and application are required")
)

// mailSender is the dispatcher surface the API uses.
type mailSender interface {
	Send(ctx context.Context, msg email.Message) email.Result
	SendWithRetry(ctx context.Context, msg email.Message) email.Result
}

// statsSource reports carrier counters.
type statsSource interface {
	Stats() realtime.Stats
	State() realtime.State
}

type api struct {
	queue        realtime.Queue
	mail         mailSender
	accounts     transport.Accounts
	events       http.Handler
	carrier      statsSource
	checks       map[string]httpserver.Check
	log          *slog.Logger
	maxBody      int64
	checkTimeout time.Duration
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)

	r.Get("/healthz", httpserver.HealthCheckHandler(a.log, a.checkTimeout, nil))
	r.Get("/readyz", httpserver.HealthCheckHandler(a.log, a.checkTimeout, a.checks))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/notifications", a.enqueueNotification)
		r.Post("/mail", a.sendMail)
		r.Get("/stats", a.stats)
		r.Method(http.MethodGet, "/events", a.events)
	})
	return r
}

type notificationRequest struct {
	ID          string          `json:"id,omitempty"`
	Recipient   string          `json:"recipient"`
	Application string          `json:"application"`
	Payload     json.RawMessage `json:"payload"`
}

type notificationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// enqueueNotification accepts a real-time notification. A full queue drops
// it and answers 503 so the caller can fall back to another channel.
func (a *api) enqueueNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Recipient == "" || req.Application == "" {
		a.writeError(w, r, errMissingRecipient)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	env := realtime.Envelope{
		ID:          req.ID,
		Recipient:   req.Recipient,
		Application: req.Application,
		Payload:     req.Payload,
	}
	if !a.queue.Enqueue(r.Context(), env) {
		a.log.LogAttrs(r.Context(), slog.LevelWarn, "notification dropped, queue full",
			logger.NotificationID(env.ID),
			logger.Recipient(env.Recipient),
			logger.Application(env.Application),
		)
		writeJSON(w, http.StatusServiceUnavailable, notificationResponse{ID: env.ID, Status: "dropped"})
		return
	}
	writeJSON(w, http.StatusAccepted, notificationResponse{ID: env.ID, Status: "queued"})
}

type mailRequest struct {
	email.Message
	Account string `json:"account,omitempty"`
	Retry   bool   `json:"retry,omitempty"`
}

type mailResponse struct {
	Outcome    string `json:"outcome"`
	Message    string `json:"message,omitempty"`
	Attempts   int    `json:"attempts"`
	DurationMS int64  `json:"duration_ms"`
	Retryable  bool   `json:"retryable"`
}

func (a *api) sendMail(w http.ResponseWriter, r *http.Request) {
	var req mailRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	account, ok := a.accounts.Lookup(req.Account)
	if !ok {
		a.writeError(w, r, fmt.Errorf("%w: %q", errUnknownAccount, req.Account))
		return
	}
	msg := req.Message
	msg.Account = account

	var res email.Result
	if req.Retry {
		res = a.mail.SendWithRetry(r.Context(), msg)
	} else {
		res = a.mail.Send(r.Context(), msg)
	}

	text := res.Message
	if text == "" && res.Err != nil {
		text = res.Err.Error()
	}
	writeJSON(w, mailStatus(res.Kind), mailResponse{
		Outcome:    res.Kind.String(),
		Message:    text,
		Attempts:   res.Attempts,
		DurationMS: res.Duration.Milliseconds(),
		Retryable:  res.Retryable(),
	})
}

// mailStatus maps a send outcome onto an HTTP status.
func mailStatus(k email.Kind) int {
	switch {
	case k == email.KindDelivered:
		return http.StatusOK
	case k == email.KindInvalidMessage:
		return http.StatusBadRequest
	case k.Rejected():
		return http.StatusUnprocessableEntity
	case k == email.KindPoolExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

type statsResponse struct {
	State     string `json:"state"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Acked     uint64 `json:"acked"`
	Pending   int    `json:"pending_acks"`
	Queued    int    `json:"queued"`
	Capacity  int    `json:"capacity"`
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s := a.carrier.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		State:     a.carrier.State().String(),
		Delivered: s.Delivered,
		Dropped:   s.Dropped,
		Failed:    s.Failed,
		Acked:     s.Acked,
		Pending:   s.Pending,
		Queued:    a.queue.Len(r.Context()),
		Capacity:  a.queue.Cap(),
	})
}

// decode reads a strict JSON body of at most maxBody bytes.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errUnsupportedMediaType
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errMalformedBody, err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", errMalformedBody)
	}
	return nil
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	}

	a.log.LogAttrs(r.Context(), slog.LevelDebug, "request rejected",
		slog.String("path", r.URL.Path), logger.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// eventsHandler exposes the hub's SSE stream.
func eventsHandler(h *hub.Hub) http.Handler {
	return h.Handler(hub.QueryIdentity)
}
