// Package rediscache provides an optional Redis-backed cache for
// classification results, keyed by model and image URL. When no Redis
// address is configured the service uses the no-op implementation and
// every lookup misses.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/domain"
)

// keyPrefix versions the cache namespace so a schema change never
// reads stale entries.
const keyPrefix = "argus:classify:v1:"

// Key derives the cache key for a model and image URL pair.
func Key(model, imageURL string) string {
	sum := sha256.Sum256([]byte(model + "|" + imageURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Cache stores classification results in Redis with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis with the given configuration and verifies the
// connection with a ping. If log is nil, a default logger will be used.
func New(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.With(slog.String("component", "result_cache")),
	}, nil
}

// Get looks up cached labels for the key. The second return value
// reports whether the key was present; a Redis failure is returned as
// an error so callers can treat it as a miss without confusing the two.
func (c *Cache) Get(ctx context.Context, key string) ([]domain.Label, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	var labels []domain.Label
	if err := json.Unmarshal(data, &labels); err != nil {
		// A corrupt entry is as good as a miss; drop it.
		c.logger.Warn("dropping corrupt cache entry", "key", key, "error", err)
		c.client.Del(ctx, key)
		return nil, false, nil
	}

	return labels, true, nil
}

// Set stores labels under the key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, labels []domain.Label) error {
	data, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to encode labels for cache: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Noop is the disabled-cache implementation: every Get misses and Set
// discards.
type Noop struct{}

// NewNoop creates a Noop cache.
func NewNoop() *Noop {
	return &Noop{}
}

// Get always reports a miss.
func (*Noop) Get(context.Context, string) ([]domain.Label, bool, error) {
	return nil, false, nil
}

// Set discards the labels.
func (*Noop) Set(context.Context, string, []domain.Label) error {
	return nil
}
