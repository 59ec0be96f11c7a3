package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Registry records which connections are live. realtime.Directory
// implements it.
type Registry interface {
	Register(identity, application, connectionID string)
	Remove(identity, connectionID string) bool
}

// Hub holds the live connections of this process and pushes payloads to
// them. It implements realtime.HubSender.
type Hub struct {
	registry   Registry
	bufferSize int
	logger     *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*Subscription
	closed bool
	wg     sync.WaitGroup
}

// New creates a hub that registers every connection in registry.
func New(registry Registry, opts ...Option) (*Hub, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	h := &Hub{
		registry:   registry,
		bufferSize: 16,
		logger:     slog.Default(),
		conns:      make(map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("hub"))
	return h, nil
}

// Connect opens a connection for identity in application. The connection
// is closed when ctx is cancelled or Close is called on the subscription.
func (h *Hub) Connect(ctx context.Context, identity, application string) (*Subscription, error) {
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	if application == "" {
		return nil, ErrMissingApplication
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	sub := &Subscription{
		ID:          uuid.NewString(),
		Identity:    identity,
		Application: application,
		messages:    make(chan []byte, h.bufferSize),
		done:        make(chan struct{}),
		hub:         h,
	}
	h.conns[sub.ID] = sub
	h.registry.Register(identity, application, sub.ID)
	h.mu.Unlock()

	h.logger.LogAttrs(ctx, slog.LevelDebug, "connection opened",
		logger.ConnectionID(sub.ID),
		logger.Recipient(identity),
		logger.Application(application),
	)

	if ctx.Done() != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// Push delivers payload to every listed connection that has room in its
// buffer. Slow connections are skipped. Push fails only when none of the
// connections accepted the payload.
func (h *Hub) Push(ctx context.Context, connectionIDs []string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	accepted := 0
	for _, id := range connectionIDs {
		sub, ok := h.conns[id]
		if !ok {
			continue
		}
		select {
		case sub.messages <- payload:
			accepted++
		default:
			h.logger.LogAttrs(ctx, slog.LevelWarn, "slow connection skipped", logger.ConnectionID(id))
		}
	}
	if accepted == 0 {
		return fmt.Errorf("%w: %d connection(s) targeted", ErrNotDelivered, len(connectionIDs))
	}
	return nil
}

// Len reports the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every connection. It is safe to call Close multiple times.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.conns))
	for _, sub := range h.conns {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	h.wg.Wait()
	return nil
}

func (h *Hub) disconnect(sub *Subscription) {
	h.mu.Lock()
	delete(h.conns, sub.ID)
	h.registry.Remove(sub.Identity, sub.ID)
	close(sub.messages)
	h.mu.Unlock()

	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "connection closed",
		logger.ConnectionID(sub.ID),
		logger.Recipient(sub.Identity),
	)
}

// Subscription is one live client connection.
type Subscription struct {
	ID          string
	Identity    string
	Application string

	messages  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	hub       *Hub
}

// Messages returns the channel of pushed payloads. It is closed when the
// subscription ends.
func (s *Subscription) Messages() <-chan []byte {
	return s.messages
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close ends the subscription and removes it from the registry.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.disconnect(s)
	})
	return nil
}
