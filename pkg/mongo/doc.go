// Package mongo provides MongoDB connection management and the MongoDB
// variant of the delivery acknowledgment store.
//
// Key features:
//   - Environment-driven configuration
//   - Retrying connect that respects context cancellation
//   - Health check for readiness endpoints
//   - AckStore, a realtime.AckSink backed by an upserting bulk write
//
// # Usage
//
//	client, coll, err := mongo.AckCollection(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	carrier, err := realtime.NewCarrier(queue, directory, hub, mongo.NewAckStore(coll))
//
// Each acknowledged notification becomes one document keyed by
// "<channel>:<notification id>". Re-acknowledging keeps the first delivery
// time.
//
// # Error Handling
//
// Failures are joined with package sentinels (ErrFailedToConnectToMongo,
// ErrHealthcheckFailed, ErrFailedToMarkDelivered) and can be matched with
// errors.Is.
package mongo
