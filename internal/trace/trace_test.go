package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpansExportedToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter("backtest", &buf))

	ctx, span := StartSpan(context.Background(), "engine.Step")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"engine.Step"`)
	assert.Contains(t, buf.String(), "nifty-meanrev")
}

func TestDisabled(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "false")
	require.NoError(t, Init("live"))

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
	assert.NoError(t, Shutdown(context.Background()))
}
