package rediscache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visionsmith/argus-api/internal/config"
)

func TestKey(t *testing.T) {
	t.Parallel()

	k1 := Key("gemini-2.0-flash", "https://example.com/cat.jpg")
	k2 := Key("gemini-2.0-flash", "https://example.com/cat.jpg")
	assert.Equal(t, k1, k2, "same inputs must derive the same key")
	assert.True(t, strings.HasPrefix(k1, "argus:classify:v1:"))

	assert.NotEqual(t, k1, Key("gemini-2.5-pro", "https://example.com/cat.jpg"),
		"different models must not share cache entries")
	assert.NotEqual(t, k1, Key("gemini-2.0-flash", "https://example.com/dog.jpg"),
		"different URLs must not share cache entries")

	// The raw URL must not appear in the key; only its digest does.
	assert.NotContains(t, k1, "example.com")
}

func TestNewRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.CacheConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestNoop(t *testing.T) {
	t.Parallel()

	n := NewNoop()
	ctx := context.Background()

	labels, hit, err := n.Get(ctx, Key("m", "u"))
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, labels)

	assert.NoError(t, n.Set(ctx, Key("m", "u"), nil))

	// A set followed by a get still misses.
	_, hit, _ = n.Get(ctx, Key("m", "u"))
	assert.False(t, hit)
}
