package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the part of *pgxpool.Pool the ack store needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const markDeliveredQuery = `
INSERT INTO notification_deliveries (notification_id, channel)
SELECT id, $2 FROM unnest($1::text[]) AS id
ON CONFLICT (notification_id, channel) DO NOTHING`

// AckStore records delivered notifications in the notification_deliveries
// table. It implements realtime.AckSink.
type AckStore struct {
	db execer
}

// NewAckStore creates an ack store on top of a pgx pool.
func NewAckStore(db execer) *AckStore {
	return &AckStore{db: db}
}

// MarkDelivered inserts one row per id. Re-acknowledging an id is a no-op,
// so retried flushes are safe.
func (s *AckStore) MarkDelivered(ctx context.Context, ids []string, channel string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, markDeliveredQuery, ids, channel); err != nil {
		return errors.Join(ErrFailedToMarkDelivered, err)
	}
	return nil
}
