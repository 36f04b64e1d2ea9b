package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "fresh context carries no trace ID")

	traced := SetTraceID(ctx)
	traceID := GetTraceID(traced)
	assert.Len(t, traceID, 32, "trace IDs are 16 bytes hex encoded")
	assert.Empty(t, GetTraceID(ctx), "parent context stays untouched")
}

func TestTraceIDsAreDistinct(t *testing.T) {
	t.Parallel()

	first := GetTraceID(SetTraceID(context.Background()))
	second := GetTraceID(SetTraceID(context.Background()))
	assert.NotEqual(t, first, second)
}

func TestGetTraceIDWrongValueType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}
