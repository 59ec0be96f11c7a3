package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to json at info", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))

		log.Debug("hidden")
		assert.Zero(t, buf.Len())

		log.Info("hello")
		entry := decodeLine(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText)).Info("hello")
		assert.Contains(t, buf.String(), "level=INFO")
	})

	t.Run("static attributes", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithAttr(slog.String("region", "eu"))).Info("msg")
		assert.Equal(t, "eu", decodeLine(t, buf)["region"])
	})

	t.Run("context extractors survive With", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
				if v, ok := ctx.Value(key{}).(string); ok {
					return logger.ConnectionID(v), true
				}
				return slog.Attr{}, false
			}),
		).With(logger.Component("hub"))

		log.InfoContext(context.WithValue(context.Background(), key{}, "c-1"), "connected")
		entry := decodeLine(t, buf)
		assert.Equal(t, "c-1", entry["connection_id"])
		assert.Equal(t, "hub", entry["component"])
	})
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("development logs debug as text", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		logger.New(logger.WithEnvironment(logger.Development, "notifyd"), logger.WithOutput(buf)).Debug("msg")
		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "service=notifyd")
	})

	t.Run("production logs json", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment(logger.Production, "notifyd"), logger.WithOutput(buf))
		log.Debug("hidden")
		log.Info("msg")
		entry := decodeLine(t, buf)
		assert.Equal(t, "notifyd", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})
}

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, logger.Production, logger.ParseEnvironment("prod"))
	assert.Equal(t, logger.Production, logger.ParseEnvironment(" Production "))
	assert.Equal(t, logger.Staging, logger.ParseEnvironment("stage"))
	assert.Equal(t, logger.Development, logger.ParseEnvironment(""))
	assert.Equal(t, logger.Development, logger.ParseEnvironment("qa"))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	opts, err := logger.FromConfig(logger.Config{Level: "warn", Format: "TEXT"})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	log := logger.New(append([]logger.Option{
		logger.WithEnvironment(logger.Production, "notifyd"),
		logger.WithOutput(buf),
	}, opts...)...)
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "level=WARN")

	_, err = logger.FromConfig(logger.Config{Level: "loud"})
	assert.Error(t, err)
	_, err = logger.FromConfig(logger.Config{Format: "xml"})
	assert.Error(t, err)
}

func TestWithFormatPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { logger.WithFormat("xml") })
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decodeLine(t, buf)["msg"])
}
