package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// bulkWriter is the part of *mongo.Collection the ack store needs.
type bulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...options.Lister[options.BulkWriteOptions]) (*mongo.BulkWriteResult, error)
}

// AckStore records delivered notifications, one document per id and
// channel. It implements realtime.AckSink.
type AckStore struct {
	coll bulkWriter
	now  func() time.Time
}

// NewAckStore creates an ack store writing to coll.
func NewAckStore(coll bulkWriter) *AckStore {
	return &AckStore{coll: coll, now: time.Now}
}

// MarkDelivered upserts a document per id. Existing documents keep their
// original delivery time, so retried flushes are safe.
func (s *AckStore) MarkDelivered(ctx context.Context, ids []string, channel string) error {
	if len(ids) == 0 {
		return nil
	}

	now := s.now().UTC()
	models := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: deliveryKey(id, channel)}}).
			SetUpdate(bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "notification_id", Value: id},
				{Key: "channel", Value: channel},
				{Key: "delivered_at", Value: now},
			}}}).
			SetUpsert(true))
	}

	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return errors.Join(ErrFailedToMarkDelivered, err)
	}
	return nil
}

func deliveryKey(id, channel string) string {
	return channel + ":" + id
}
