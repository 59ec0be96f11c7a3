package realtime

import "context"

// Envelope is a real-time notification waiting for delivery.
// Payload is opaque to the pipeline.
type Envelope struct {
	ID          string `json:"id"`
	Recipient   string `json:"recipient"`
	Application string `json:"application"`
	Payload     []byte `json:"payload"`
}

// ConnectionRecord describes one live client connection.
type ConnectionRecord struct {
	ID          string
	Application string
	Identity    string
}

// Resolver finds the live connections that should receive a notification.
type Resolver interface {
	Lookup(identity, application string) []string
}

// HubSender pushes a payload to live connections.
type HubSender interface {
	Push(ctx context.Context, connectionIDs []string, payload []byte) error
}

// AckSink records that notifications reached at least one live connection.
type AckSink interface {
	MarkDelivered(ctx context.Context, ids []string, channel string) error
}

// AckSinkFunc adapts a function to the AckSink interface.
type AckSinkFunc func(ctx context.Context, ids []string, channel string) error

func (f AckSinkFunc) MarkDelivered(ctx context.Context, ids []string, channel string) error {
	return f(ctx, ids, channel)
}
