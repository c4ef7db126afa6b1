package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	forecastKeyPrefix     = "restock:forecast"
	forecastScanBatchSize = 100
)

// ForecastKey identifies a forecast by everything that determines its content.
type ForecastKey struct {
	ProductID    int64
	ModelVersion string
	LastObserved time.Time
	HorizonDays  int
}

type ForecastCache interface {
	Get(ctx context.Context, key ForecastKey) (*domain.Forecast, bool, error)
	Set(ctx context.Context, key ForecastKey, fc *domain.Forecast) error
	InvalidateProduct(ctx context.Context, productID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache connects to redis when caching is enabled and falls back to
// a no-op cache otherwise.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, key ForecastKey) (*domain.Forecast, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var fc domain.Forecast
	if err := json.Unmarshal(payload, &fc); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &fc, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, key ForecastKey, fc *domain.Forecast) error {
	payload, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return deleteKeysWithPrefix(ctx, c.client, productKeyPrefix(productID), forecastScanBatchSize)
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix, forecastScanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, key ForecastKey) (*domain.Forecast, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, key ForecastKey, fc *domain.Forecast) error {
	return nil
}

func (n *noopForecastCache) InvalidateProduct(ctx context.Context, productID int64) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func productKeyPrefix(productID int64) string {
	return fmt.Sprintf("%s:%d:", forecastKeyPrefix, productID)
}

func buildForecastKey(key ForecastKey) string {
	raw := fmt.Sprintf("%s|%s|%d", key.ModelVersion, key.LastObserved.UTC().Format("2006-01-02"), key.HorizonDays)
	sum := sha1.Sum([]byte(raw))
	return productKeyPrefix(key.ProductID) + hex.EncodeToString(sum[:])
}
