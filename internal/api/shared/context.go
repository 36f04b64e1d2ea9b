// Package shared holds the request/response helpers and context keys
// used by every handler: JSON decoding, the standard error envelope,
// and trace ID propagation.
package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ContextKey is the key type for this package's context values. A
// named type prevents collisions with other packages' keys.
type ContextKey string

const (
	// OperatorContextKey carries the authenticated operator's subject
	// on admin routes.
	OperatorContextKey ContextKey = "operator"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey ContextKey = "traceID"

	// traceIDBytes is the trace ID length before hex encoding.
	traceIDBytes = 16
)

// SetTraceID returns a context carrying a freshly generated trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID from the context, or "" when none
// was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// newTraceID returns a 32-character hex ID. If the random source fails
// it falls back to timestamp-derived bytes rather than a static value,
// so log correlation keeps working even then.
func newTraceID() string {
	b := make([]byte, traceIDBytes)
	if n, err := rand.Read(b); err != nil || n != traceIDBytes {
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint32(b[8:12], uint32(time.Now().Nanosecond()))
		binary.BigEndian.PutUint32(b[12:16], uint32(time.Now().Unix()))
	}
	return hex.EncodeToString(b)
}
