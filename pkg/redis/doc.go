// Package redis connects to a Redis server used as the backing store of the
// realtime delivery queue.
//
// Connect retries the initial PING using the supplied Config and gives up
// once ConnectTimeout elapses. Healthcheck returns a probe suitable for the
// HTTP server's readiness endpoint.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	queue, err := realtime.NewRedisQueue(client, "notifykit:deliveries", 250)
//
// Config fields are populated from the environment (REDIS_URL,
// REDIS_RETRY_ATTEMPTS, REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT).
package redis
