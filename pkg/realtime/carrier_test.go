package realtime_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/realtime"
)

type recordingHub struct {
	mu     sync.Mutex
	pushes map[string][]byte
	fail   func(ids []string) error
}

func (h *recordingHub) Push(_ context.Context, ids []string, payload []byte) error {
	if h.fail != nil {
		if err := h.fail(ids); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pushes == nil {
		h.pushes = make(map[string][]byte)
	}
	for _, id := range ids {
		h.pushes[id] = payload
	}
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]string
	channel string
	failFor atomic.Int32
}

func (s *recordingSink) MarkDelivered(_ context.Context, ids []string, channel string) error {
	if s.failFor.Load() > 0 {
		s.failFor.Add(-1)
		return errors.New("database unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, slices.Clone(ids))
	s.channel = channel
	return nil
}

func (s *recordingSink) flushed() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.batches)
}

func startCarrier(t *testing.T, c *realtime.Carrier) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.State() != realtime.StateIdle }, time.Second, time.Millisecond)
	return func() {
		stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("carrier did not stop")
		}
	}
}

func TestNewCarrier_Validation(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(1)
	d := realtime.NewDirectory(1)
	hub := &recordingHub{}
	sink := &recordingSink{}

	_, err := realtime.NewCarrier(nil, d, hub, sink)
	assert.ErrorIs(t, err, realtime.ErrNilQueue)
	_, err = realtime.NewCarrier(q, nil, hub, sink)
	assert.ErrorIs(t, err, realtime.ErrNilResolver)
	_, err = realtime.NewCarrier(q, d, nil, sink)
	assert.ErrorIs(t, err, realtime.ErrNilHubSender)
	_, err = realtime.NewCarrier(q, d, hub, nil)
	assert.ErrorIs(t, err, realtime.ErrNilAckSink)
}

func TestCarrier_FlushesOneBatchOfDeliveredIDs(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(0)
	dir := realtime.NewDirectory(0)
	hub := &recordingHub{}
	sink := &recordingSink{}

	var (
		envelopes []realtime.Envelope
		delivered []string
	)
	for i := range 12 {
		env := envelope(i)
		// Recipients 3 and 7 have no live connection.
		if i != 3 && i != 7 {
			dir.Register(env.Recipient, "web", fmt.Sprintf("conn-%d", i))
			delivered = append(delivered, env.ID)
		}
		envelopes = append(envelopes, env)
	}

	c, err := realtime.NewCarrier(q, dir, hub, sink, realtime.WithAckChannel("realtime"))
	require.NoError(t, err)

	for _, env := range envelopes {
		require.True(t, q.Enqueue(context.Background(), env))
	}
	stop := startCarrier(t, c)

	// Acked is counted only after the sink returned.
	require.Eventually(t, func() bool {
		s := c.Stats()
		return s.Delivered+s.Dropped == 12 && s.Acked == 10
	}, 2*time.Second, time.Millisecond)

	batches := sink.flushed()
	require.Len(t, batches, 1)
	assert.Equal(t, delivered, batches[0])
	assert.NotContains(t, batches[0], "n-003")
	assert.NotContains(t, batches[0], "n-007")
	assert.Equal(t, "realtime", sink.channel)

	stats := c.Stats()
	assert.Equal(t, uint64(10), stats.Delivered)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(10), stats.Acked)
	assert.Equal(t, 0, stats.Pending)

	stop()
	assert.Len(t, sink.flushed(), 1)
	assert.Equal(t, realtime.StateStopped, c.State())
}

func TestCarrier_FlushesPartialBatchOnShutdown(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(0)
	dir := realtime.NewDirectory(0)
	sink := &recordingSink{}

	c, err := realtime.NewCarrier(q, dir, &recordingHub{}, sink)
	require.NoError(t, err)

	for i := range 4 {
		env := envelope(i)
		dir.Register(env.Recipient, env.Application, "conn")
		require.True(t, q.Enqueue(context.Background(), env))
	}
	stop := startCarrier(t, c)
	require.Eventually(t, func() bool { return c.Stats().Delivered == 4 }, time.Second, time.Millisecond)
	assert.Empty(t, sink.flushed())

	stop()
	batches := sink.flushed()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"n-000", "n-001", "n-002", "n-003"}, batches[0])
}

func TestCarrier_SurvivesFailingItems(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(0)
	dir := realtime.NewDirectory(0)
	hub := &recordingHub{fail: func(ids []string) error {
		switch ids[0] {
		case "conn-panic":
			panic("hub exploded")
		case "conn-error":
			return errors.New("connection gone")
		}
		return nil
	}}
	sink := &recordingSink{}

	c, err := realtime.NewCarrier(q, dir, hub, sink, realtime.WithAckBatchSize(2))
	require.NoError(t, err)

	conns := []string{"conn-panic", "conn-ok-1", "conn-error", "conn-ok-2"}
	for i, conn := range conns {
		env := envelope(i)
		dir.Register(env.Recipient, env.Application, conn)
		require.True(t, q.Enqueue(context.Background(), env))
	}
	stop := startCarrier(t, c)
	defer stop()

	require.Eventually(t, func() bool { return len(sink.flushed()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"n-001", "n-003"}, sink.flushed()[0])

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Failed)
	assert.Equal(t, uint64(2), stats.Delivered)
}

func TestCarrier_RetriesAckFlush(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(0)
	dir := realtime.NewDirectory(0)
	sink := &recordingSink{}
	sink.failFor.Store(2)

	c, err := realtime.NewCarrier(q, dir, &recordingHub{}, sink,
		realtime.WithAckBatchSize(1),
		realtime.WithAckRetry(3, time.Millisecond),
	)
	require.NoError(t, err)

	env := envelope(1)
	dir.Register(env.Recipient, env.Application, "conn")
	require.True(t, q.Enqueue(context.Background(), env))

	stop := startCarrier(t, c)
	defer stop()

	require.Eventually(t, func() bool { return c.Stats().Acked == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, [][]string{{"n-001"}}, sink.flushed())
}

type mockAckSink struct {
	mock.Mock
}

func (m *mockAckSink) MarkDelivered(ctx context.Context, ids []string, channel string) error {
	return m.Called(ctx, ids, channel).Error(0)
}

func TestCarrier_FailedFlushKeepsIDsPending(t *testing.T) {
	t.Parallel()

	q := realtime.NewMemoryQueue(0)
	dir := realtime.NewDirectory(0)

	sink := &mockAckSink{}
	sink.On("MarkDelivered", mock.Anything, []string{"n-001"}, "realtime").
		Return(errors.New("database unavailable"))
	sink.On("MarkDelivered", mock.Anything, []string{"n-001", "n-002"}, "realtime").
		Return(nil)

	var (
		mu       sync.Mutex
		reported []error
	)
	c, err := realtime.NewCarrier(q, dir, &recordingHub{}, sink,
		realtime.WithAckBatchSize(1),
		realtime.WithAckRetry(1, time.Millisecond),
		realtime.WithFlushErrorHandler(func(ids []string, err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		}),
	)
	require.NoError(t, err)

	for _, i := range []int{1, 2} {
		env := envelope(i)
		dir.Register(env.Recipient, env.Application, "conn")
	}
	stop := startCarrier(t, c)
	defer stop()

	require.True(t, q.Enqueue(context.Background(), envelope(1)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) == 1
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, reported[0], realtime.ErrAckFlushFailed)
	assert.Equal(t, 1, c.Stats().Pending)

	require.True(t, q.Enqueue(context.Background(), envelope(2)))
	require.Eventually(t, func() bool { return c.Stats().Acked == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, c.Stats().Pending)
	sink.AssertNumberOfCalls(t, "MarkDelivered", 3)
}

func TestCarrier_RunTwice(t *testing.T) {
	t.Parallel()

	c, err := realtime.NewCarrier(realtime.NewMemoryQueue(1), realtime.NewDirectory(1), &recordingHub{}, &recordingSink{})
	require.NoError(t, err)

	stop := startCarrier(t, c)
	defer stop()
	assert.ErrorIs(t, c.Run(context.Background()), realtime.ErrCarrierRunning)
}
