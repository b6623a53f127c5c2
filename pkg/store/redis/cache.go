// Package redis caches backend responses for the viewer server so a page of
// concurrent viewers does not fan out into repeated backend fetches.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zenpipeline/archview/pkg/client"
)

// ErrCacheMiss is returned when no cached snapshot exists for a repository.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL bounds staleness; the viewer shows data at most this old.
const DefaultTTL = 30 * time.Second

// Cache stores snapshots keyed by repository id.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a redis client. ttl <= 0 uses DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) makeKey(repoID uuid.UUID) string {
	return fmt.Sprintf("archview:snapshot:%s", repoID)
}

// Get returns the cached snapshot for a repository, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error) {
	raw, err := c.client.Get(ctx, c.makeKey(repoID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return client.Snapshot{}, ErrCacheMiss
	}
	if err != nil {
		return client.Snapshot{}, fmt.Errorf("cache get: %w", err)
	}

	var snap client.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return client.Snapshot{}, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snap, nil
}

// Set stores a snapshot under the repository key with the cache TTL.
func (c *Cache) Set(ctx context.Context, snap client.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.makeKey(snap.RepositoryID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot, e.g. after an explicit analysis.
func (c *Cache) Invalidate(ctx context.Context, repoID uuid.UUID) error {
	if err := c.client.Del(ctx, c.makeKey(repoID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
