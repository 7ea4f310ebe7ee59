package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/types"
	"go.uber.org/zap"
)

const (
	defaultCandleCacheTTL       = 24 * time.Hour
	defaultCandleCacheNamespace = "candles"
)

// CachedCandleSource decorates a CandleSource with a Redis read-through cache.
// Candle history is immutable, so entries are keyed by the exact query and
// only expire by TTL. A nil client bypasses the cache.
type CachedCandleSource struct {
	inner     CandleSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    *logger.Logger
}

var _ CandleSource = (*CachedCandleSource)(nil)

// NewCachedCandleSource wraps inner. A non-positive ttl defaults to 24h and an
// empty namespace to "candles".
func NewCachedCandleSource(rdb *redis.Client, ttl time.Duration, namespace string, inner CandleSource, logger *logger.Logger) *CachedCandleSource {
	if ttl <= 0 {
		ttl = defaultCandleCacheTTL
	}

	if namespace == "" {
		namespace = defaultCandleCacheNamespace
	}

	return &CachedCandleSource{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger,
	}
}

// GetCandles implements CandleSource.
func (c *CachedCandleSource) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Candle, error) {
	if c.rdb == nil {
		return c.inner.GetCandles(ctx, symbol, timeframe, start, end)
	}

	key := c.cacheKey(symbol, timeframe, start, end)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []types.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}

		c.logger.Warn("Dropping corrupted candle cache entry", zap.String("key", key))
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.GetCandles(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	// best effort, a cache failure never fails the query
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to store candles in cache", zap.String("key", key), zap.Error(err))
		}
	}

	return out, nil
}

func (c *CachedCandleSource) cacheKey(symbol string, timeframe types.Timeframe, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d",
		c.namespace,
		safe(symbol),
		safe(string(timeframe)),
		start.Unix(),
		end.Unix(),
	)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")

	return s
}
