// Package realtime moves notifications from producers to live client
// connections.
//
// Producers call Queue.Enqueue, which never blocks: when the queue is full
// the envelope is dropped and Enqueue reports false. A single Carrier per
// process drains the queue in FIFO order, resolves the recipient's
// connections through a Directory and pushes the payload through a
// HubSender. Delivered ids are collected in a Batch and acknowledged to an
// AckSink once the batch reaches its threshold (10 by default). The flush is
// awaited and retried; ids from a failed flush stay pending for the next one.
//
//	queue := realtime.NewMemoryQueue(realtime.DefaultQueueCapacity)
//	dir := realtime.NewDirectory(0)
//	carrier, err := realtime.NewCarrier(queue, dir, hub, ackStore)
//	if err != nil {
//	    return err
//	}
//	g.Go(carrier.Worker(ctx))
//
//	queue.Enqueue(ctx, realtime.Envelope{ID: id, Recipient: "user-1", Application: "web", Payload: body})
//
// Notifications for recipients without a live connection in the matching
// application are dropped and logged; they are never acknowledged.
//
// RedisQueue keeps the queue in a Redis list named "<key>:<instance id>", so
// the feed outlives a restart but is never read by another process instance.
// Capacity is enforced atomically by a Lua script.
package realtime
