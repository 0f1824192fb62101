package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/internal/models"
)

// TrackingTTL is how long a tracking view stays cached
const TrackingTTL = 5 * time.Minute

// NewRedisClient connects to the configured Redis and checks it answers
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// TrackingCache stores order tracking views in Redis
type TrackingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTrackingCache creates a TrackingCache on rdb
func NewTrackingCache(rdb *redis.Client) *TrackingCache {
	return &TrackingCache{rdb: rdb, ttl: TrackingTTL}
}

func trackingKey(orderID int64) string {
	return fmt.Sprintf("storefront:tracking:%d", orderID)
}

// Get returns the cached view, or nil when there is none
func (c *TrackingCache) Get(ctx context.Context, orderID int64) (*models.OrderTracking, error) {
	data, err := c.rdb.Get(ctx, trackingKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tracking models.OrderTracking
	if err := json.Unmarshal(data, &tracking); err != nil {
		return nil, err
	}

	return &tracking, nil
}

func (c *TrackingCache) Set(ctx context.Context, tracking *models.OrderTracking) error {
	data, err := json.Marshal(tracking)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, trackingKey(tracking.OrderID), data, c.ttl).Err()
}

func (c *TrackingCache) Invalidate(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, trackingKey(orderID)).Err()
}

// NopTrackingCache is used when no Redis is configured
type NopTrackingCache struct{}

func (NopTrackingCache) Get(context.Context, int64) (*models.OrderTracking, error) { return nil, nil }
func (NopTrackingCache) Set(context.Context, *models.OrderTracking) error { return nil }
func (NopTrackingCache) Invalidate(context.Context, int64) error { return nil }
