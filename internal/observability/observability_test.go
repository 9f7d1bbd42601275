package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reqCtx := NewRequestContext(logger, "resolve", "zh")
	require.NotEmpty(t, reqCtx.RequestID)
	assert.Len(t, reqCtx.RequestID, 36)

	reqCtx.Info("resolved", slog.Int(LogFieldResultCount, 2))
	out := buf.String()
	assert.Contains(t, out, `"request_id":"`+reqCtx.RequestID+`"`)
	assert.Contains(t, out, `"locale":"zh"`)
	assert.Contains(t, out, `"operation":"resolve"`)
	assert.Contains(t, out, `"result_count":2`)
}

func TestRequestContextWithID(t *testing.T) {
	reqCtx := NewRequestContextWithID(nil, "fixed-id", "batch", "en")
	assert.Equal(t, "fixed-id", reqCtx.RequestID)
	assert.NotNil(t, reqCtx.Logger)
	assert.GreaterOrEqual(t, reqCtx.DurationMs(), int64(0))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	reqCtx := NewRequestContextWithID(nil, "abc", "resolve", "en")
	ctx = WithRequestContext(ctx, reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	fresh := StartOperation(context.Background(), nil, "other", "zh")
	assert.NotEqual(t, "abc", fresh.RequestID)
	assert.Equal(t, "other", fresh.Operation)
}

func TestStartOperation_KeepsRequestIDRestartsClock(t *testing.T) {
	parent := NewRequestContextWithID(nil, "batch-1", "resolve_batch", "en")
	parent.StartTime = time.Now().Add(-time.Hour)
	ctx := WithRequestContext(context.Background(), parent)

	child := StartOperation(ctx, nil, "resolve", "en")
	assert.NotSame(t, parent, child)
	assert.Equal(t, "batch-1", child.RequestID)
	assert.Equal(t, "resolve", child.Operation)
	assert.Less(t, child.Duration(), time.Minute)
	assert.GreaterOrEqual(t, parent.Duration(), time.Hour)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(3)
	m.RecordRequest("en")
	m.RecordRequest("en")
	m.RecordRequest("zh")
	m.RecordFailure("zh")
	m.RecordResults(5)
	for _, d := range []time.Duration{10, 20, 30, 40} {
		m.RecordDuration("en", d*time.Millisecond)
	}

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.RequestTotal)
	assert.Equal(t, int64(1), snap.RequestFailed)
	assert.Equal(t, int64(5), snap.ResultTotal)
	assert.Equal(t, int64(2), snap.Locales["en"].RequestCount)
	assert.Equal(t, int64(100), snap.Locales["en"].TotalDuration)
	assert.Equal(t, int64(50), snap.Locales["en"].AverageDuration)
	assert.Equal(t, int64(1), snap.Locales["zh"].ErrorCount)
	// oldest duration evicted: 20, 30, 40 remain
	assert.Equal(t, int64(30), snap.P50LatencyMs)
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)

	m.Reset()
	snap = m.Snapshot()
	assert.Zero(t, snap.RequestTotal)
	assert.Empty(t, snap.Locales)
	assert.Equal(t, 100.0, snap.SuccessRate())
}
