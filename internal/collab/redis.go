package collab

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements Provider for the cache/leaderboard store
type RedisProvider struct {
	BaseProvider
	client *redis.Client
}

// NewRedisProvider creates a new redis collaborator provider
func NewRedisProvider(address, password string, db int) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProvider{
		BaseProvider: BaseProvider{providerType: "redis"},
		client:       client,
	}, nil
}

// HealthCheck verifies redis connectivity
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
