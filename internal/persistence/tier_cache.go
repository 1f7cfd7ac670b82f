package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tierKeyPrefix = "escalation:customer_tier:"

// TierSource resolves a customer's tier from the system of record.
type TierSource interface {
	GetTier(ctx context.Context, customerID string) (string, error)
}

// TierCache fronts a TierSource with a Redis TTL cache. Cache failures fall
// through to the source.
type TierCache struct {
	source TierSource
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTierCache wraps source. A nil client or zero ttl disables caching.
func NewTierCache(source TierSource, client *redis.Client, ttl time.Duration, logger *zap.Logger) *TierCache {
	return &TierCache{source: source, client: client, ttl: ttl, logger: logger}
}

// GetTier returns the cached tier or loads and caches it.
func (c *TierCache) GetTier(ctx context.Context, customerID string) (string, error) {
	if c.client == nil || c.ttl <= 0 || customerID == "" {
		return c.source.GetTier(ctx, customerID)
	}
	key := tierKeyPrefix + customerID
	tier, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return tier, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Debug("tier cache read failed", zap.String("customer_id", customerID), zap.Error(err))
	}

	tier, err = c.source.GetTier(ctx, customerID)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, tier, c.ttl).Err(); err != nil {
		c.logger.Debug("tier cache write failed", zap.String("customer_id", customerID), zap.Error(err))
	}
	return tier, nil
}
