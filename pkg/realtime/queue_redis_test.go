package realtime_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/realtime"
)

func redisClient(t *testing.T) redis.UniversalClient {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestNewRedisQueue_NilClient(t *testing.T) {
	t.Parallel()
	q, err := realtime.NewRedisQueue(nil, "key", 10)
	assert.ErrorIs(t, err, realtime.ErrNilRedisClient)
	assert.Nil(t, q)
}

func TestNewRedisQueue_InstanceKey(t *testing.T) {
	t.Parallel()

	// Construction does not talk to the server.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	q, err := realtime.NewRedisQueue(client, "notifykit:realtime", 10, realtime.WithInstanceID("web-1"))
	require.NoError(t, err)
	assert.Equal(t, "notifykit:realtime:web-1", q.Key())

	a, err := realtime.NewRedisQueue(client, "notifykit:realtime", 10)
	require.NoError(t, err)
	b, err := realtime.NewRedisQueue(client, "notifykit:realtime", 10)
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, "notifykit:realtime", a.Key())
}

func TestRedisQueue_InstancesKeepTheirOwnFeed(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	base := "notifykit:test:" + uuid.NewString()
	web1, err := realtime.NewRedisQueue(client, base, 10,
		realtime.WithInstanceID("web-1"), realtime.WithPollTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer web1.Close()
	web2, err := realtime.NewRedisQueue(client, base, 10,
		realtime.WithInstanceID("web-2"), realtime.WithPollTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer web2.Close()
	t.Cleanup(func() { client.Del(context.Background(), web1.Key(), web2.Key()) })

	for i := range 3 {
		require.True(t, web1.Enqueue(ctx, envelope(i)))
	}

	// web-2 polls an empty feed until its context ends.
	dctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	for env := range web2.Dequeue(dctx) {
		t.Fatalf("web-2 received %s from web-1's feed", env.ID)
	}
	assert.Equal(t, 3, web1.Len(ctx))
	assert.Equal(t, 0, web2.Len(ctx))

	rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
	defer rcancel()
	var got []string
	for env := range web1.Dequeue(rctx) {
		got = append(got, env.ID)
		if len(got) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"n-000", "n-001", "n-002"}, got)
}

func TestRedisQueue(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	q, err := realtime.NewRedisQueue(client, "notifykit:test", 3, realtime.WithPollTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer q.Close()
	t.Cleanup(func() { client.Del(context.Background(), q.Key()) })

	for i := range 3 {
		require.True(t, q.Enqueue(ctx, envelope(i)))
	}
	assert.False(t, q.Enqueue(ctx, envelope(3)))
	assert.Equal(t, 3, q.Len(ctx))

	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var got []realtime.Envelope
	for env := range q.Dequeue(dctx) {
		got = append(got, env)
		if len(got) == 3 {
			break
		}
	}
	require.Len(t, got, 3)
	assert.Equal(t, "n-000", got[0].ID)
	assert.Equal(t, "n-002", got[2].ID)
	assert.Equal(t, []byte(`{"title":"hello"}`), got[0].Payload)
	assert.Equal(t, 0, q.Len(ctx))
}
