package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/familykit/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello", logger.PlanID("premium"))

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "premium", entry["plan_id"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("warn"))
		log.Info("dropped")
		assert.Zero(t, buf.Len())
		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("development uses text", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("development", "familykit"))
		log.Debug("visible")
		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "service=familykit")
	})

	t.Run("production uses json", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment("production", "familykit"))
		log.Debug("hidden")
		assert.Zero(t, buf.Len())
		log.Info("shown")
		entry := decode(t, buf)
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	extract := func(ctx context.Context) (slog.Attr, bool) {
		id, ok := ctx.Value(ctxKey{}).(string)
		if !ok {
			return slog.Attr{}, false
		}
		return logger.RequestID(id), true
	}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(extract, nil))

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	log.With(logger.Component("billing")).InfoContext(ctx, "with request")
	entry := decode(t, buf)
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "billing", entry["component"])

	buf.Reset()
	log.InfoContext(context.Background(), "without request")
	entry = decode(t, buf)
	assert.NotContains(t, entry, "request_id")
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)
	assert.Equal(t, slog.Attr{}, logger.UserID(nil))
	assert.Equal(t, slog.Attr{}, logger.RequestID(""))

	g := logger.Group("quota", logger.Action("create_memory"), logger.Reason("memory_limit_reached"))
	require.Equal(t, slog.KindGroup, g.Value.Kind())
	assert.Len(t, g.Value.Group(), 2)
}
