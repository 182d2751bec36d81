package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/cityguesser/internal/metrics"
)

// BoundarySource returns a country's GeoJSON geometry.
type BoundarySource interface {
	CountryBoundary(ctx context.Context, name string) ([]byte, error)
}

// BoundaryCache is a read-through Redis cache in front of a BoundarySource.
// Redis failures are logged and the source is used directly.
type BoundaryCache struct {
	client *redis.Client
	source BoundarySource
	ttl    time.Duration
	logger *slog.Logger
}

func NewBoundaryCache(client *redis.Client, source BoundarySource, ttl time.Duration, logger *slog.Logger) *BoundaryCache {
	return &BoundaryCache{client: client, source: source, ttl: ttl, logger: logger}
}

func boundaryKey(name string) string {
	return "boundary:" + strings.ToLower(strings.TrimSpace(name))
}

func (c *BoundaryCache) CountryBoundary(ctx context.Context, name string) ([]byte, error) {
	key := boundaryKey(name)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		metrics.BoundaryCacheHitsTotal.Inc()
		return data, nil
	case errors.Is(err, redis.Nil):
		metrics.BoundaryCacheMissesTotal.Inc()
	default:
		c.logger.Warn("boundary cache read failed", "key", key, "error", err)
	}

	data, err = c.source.CountryBoundary(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("boundary cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Invalidate drops the cached outline of name after it changed.
func (c *BoundaryCache) Invalidate(ctx context.Context, name string) error {
	return c.client.Del(ctx, boundaryKey(name)).Err()
}

// Check pings Redis for the health endpoint.
func (c *BoundaryCache) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
