// Package cache provides the redis-backed runtime config cache and the
// best-effort XP leaderboard. Everything here is an optimization: callers
// fall back to postgres (cache) or log and continue (leaderboard).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playops-hq/playops-engine/internal/models"
)

const (
	runtimeKeyPrefix = "playops:runtime:"
	leaderboardKey   = "playops:leaderboard:xp"
)

// Cache wraps a redis client for runtime configs and the leaderboard
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new cache and verifies connectivity
func New(address, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping verifies redis connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetRuntime returns a cached runtime config, or nil on miss
func (c *Cache) GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error) {
	data, err := c.client.Get(ctx, runtimeKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // miss
		}
		return nil, fmt.Errorf("failed to get cached runtime: %w", err)
	}

	var rt models.RuntimeConfig
	if err := json.Unmarshal(data, &rt); err != nil {
		// A corrupt entry is a miss; the authoritative copy is in postgres
		slog.Warn("corrupt runtime cache entry", "id", id, "error", err)
		return nil, nil
	}
	return &rt, nil
}

// SetRuntime caches a runtime config. Runtimes are immutable, the TTL
// only bounds memory.
func (c *Cache) SetRuntime(ctx context.Context, rt *models.RuntimeConfig) error {
	data, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("failed to marshal runtime: %w", err)
	}

	if err := c.client.Set(ctx, runtimeKeyPrefix+rt.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache runtime: %w", err)
	}
	return nil
}

// AddXP increments a user's leaderboard total
func (c *Cache) AddXP(ctx context.Context, userID string, xp int) error {
	if err := c.client.ZIncrBy(ctx, leaderboardKey, float64(xp), userID).Err(); err != nil {
		return fmt.Errorf("failed to increment leaderboard: %w", err)
	}
	return nil
}

// LeaderboardEntry is one ranked row of the XP leaderboard
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	XP     int    `json:"xp"`
	Rank   int    `json:"rank"`
}

// TopXP returns the highest-earning users, best first
func (c *Cache) TopXP(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}

	scores, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		userID, _ := z.Member.(string)
		entries = append(entries, LeaderboardEntry{
			UserID: userID,
			XP:     int(z.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}
