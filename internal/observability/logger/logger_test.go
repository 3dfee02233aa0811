package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/buildingbills/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsOnlyKnownFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("bare")
	ctx := obscontext.WithActor(obscontext.WithRequestID(context.Background(), "req-9"), "admin-1", "admin")
	WithCycle(WithContext(ctx, base), 42, "2024-03").Info("tagged")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Empty(t, entries[0].Context)

	fields := entries[1].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "admin-1", fields["actor_id"])
	assert.Equal(t, "admin", fields["actor_role"])
	assert.Equal(t, int64(42), fields["cycle_id"])
	assert.Equal(t, "2024-03", fields["period"])
	assert.NotContains(t, fields, "trace_id")
}

func TestSamplingDefaults(t *testing.T) {
	initial, thereafter, window := samplingOrDefault(Config{})
	assert.Equal(t, 100, initial)
	assert.Equal(t, 100, thereafter)
	assert.Positive(t, window)
}
