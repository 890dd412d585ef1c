package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithEmployeeID(ctx, "emp-7")
	ctx = WithOrderID(ctx, "po-1001")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "emp-7", GetEmployeeID(ctx))
	assert.Equal(t, "po-1001", GetOrderID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestTraceIDs(t *testing.T) {
	ctx := spanContext(t)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	assert.Equal(t, "00f067aa0ba902b7", GetSpanID(ctx))
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}

func TestL_InjectsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(spanContext(t), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithEmployeeID(ctx, "emp-7")

	L(ctx).With(zap.String("component", "receiving")).Warn("skipping unresolved order line")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "emp-7", fields["employee_id"])
	assert.Equal(t, "receiving", fields["component"])
	assert.NotContains(t, fields, "order_id")
}

func TestWithLogger_NilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).Info("nothing")
		WithLogger(context.Background(), nil).With(zap.Int("n", 1)).Error("nothing")
	})
}
