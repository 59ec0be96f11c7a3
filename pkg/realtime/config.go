package realtime

import "time"

// Config holds the real-time pipeline settings.
type Config struct {
	QueueDriver      string        `env:"REALTIME_QUEUE_DRIVER" envDefault:"memory"` // memory or redis
	QueueCapacity    int           `env:"REALTIME_QUEUE_CAPACITY" envDefault:"250"`
	QueueKey         string        `env:"REALTIME_QUEUE_KEY" envDefault:"notifykit:realtime"`
	InstanceID       string        `env:"REALTIME_INSTANCE_ID"` // suffix of the Redis queue key, hostname when empty
	RedisPollTimeout time.Duration `env:"REALTIME_REDIS_POLL_TIMEOUT" envDefault:"1s"`
	DirectoryShards  int           `env:"REALTIME_DIRECTORY_SHARDS" envDefault:"32"`
	AckBatchSize     int           `env:"REALTIME_ACK_BATCH_SIZE" envDefault:"10"`
	AckChannel       string        `env:"REALTIME_ACK_CHANNEL" envDefault:"realtime"`
	AckRetries       uint64        `env:"REALTIME_ACK_RETRIES" envDefault:"3"`
	AckBackoff       time.Duration `env:"REALTIME_ACK_BACKOFF" envDefault:"200ms"`
	FlushTimeout     time.Duration `env:"REALTIME_FLUSH_TIMEOUT" envDefault:"5s"`
}

// CarrierOptions translates the ack settings into carrier options.
func (c Config) CarrierOptions() []CarrierOption {
	return []CarrierOption{
		WithAckBatchSize(c.AckBatchSize),
		WithAckChannel(c.AckChannel),
		WithAckRetry(c.AckRetries, c.AckBackoff),
		WithFlushTimeout(c.FlushTimeout),
	}
}
