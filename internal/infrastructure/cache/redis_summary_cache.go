package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSummaryCache implements SummaryCache using Redis. Suitable for
// distributed deployments where multiple instances serve the reporting path
// and must observe each other's invalidations.
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSummaryCache creates a Redis-backed summary cache and verifies the
// connection before returning.
func NewRedisSummaryCache(cfg RedisConfig) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSummaryCache{
		client:    client,
		keyPrefix: "usage:summary:",
	}, nil
}

// NewRedisSummaryCacheWithClient creates a cache with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisSummaryCacheWithClient(client *redis.Client, keyPrefix string) *RedisSummaryCache {
	if keyPrefix == "" {
		keyPrefix = "usage:summary:"
	}
	return &RedisSummaryCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *RedisSummaryCache) key(organizationID uuid.UUID) string {
	return c.keyPrefix + organizationID.String()
}

// GetStorageSummary returns the cached summary for an organization.
// An undecodable entry is dropped and reported as a miss.
func (c *RedisSummaryCache) GetStorageSummary(ctx context.Context, organizationID uuid.UUID) (*billing.StorageUsageSummary, bool, error) {
	data, err := c.client.Get(ctx, c.key(organizationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached summary: %w", err)
	}

	var summary billing.StorageUsageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		// Stale or corrupt payload, e.g. after a schema change
		_ = c.client.Del(ctx, c.key(organizationID)).Err()
		return nil, false, nil
	}

	return &summary, true, nil
}

// SetStorageSummary stores a summary with the given TTL
func (c *RedisSummaryCache) SetStorageSummary(ctx context.Context, summary *billing.StorageUsageSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := c.client.Set(ctx, c.key(summary.OrganizationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}

	return nil
}

// InvalidateOrganization drops the cached summary for an organization
func (c *RedisSummaryCache) InvalidateOrganization(ctx context.Context, organizationID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(organizationID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached summary: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisSummaryCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisSummaryCache implements SummaryCache
var _ billing.SummaryCache = (*RedisSummaryCache)(nil)
