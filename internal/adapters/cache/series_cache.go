package cache

import (
	"context"
	"fmt"
	"time"

	"fxseries/internal/adapters"
	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/dgraph-io/ristretto"
)

var _ adapters.RateSource = (*CachingSource)(nil)

// CachingSource is a read-through RateSource. Only successful fetches are cached.
type CachingSource struct {
	source adapters.RateSource
	cache  *ristretto.Cache
	ttl    time.Duration
}

func NewCachingSource(source adapters.RateSource, maxItems int64, ttl time.Duration) (*CachingSource, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create series cache failed: %w", err)
	}
	return &CachingSource{source: source, cache: c, ttl: ttl}, nil
}

func (c *CachingSource) Fetch(ctx context.Context, pair domain.Pair, start, end civil.Date) (domain.RateSeries, error) {
	key := toKey(pair, start, end)
	if v, ok := c.cache.Get(key); ok {
		if s, ok := v.(domain.RateSeries); ok {
			return s, nil
		}
	}

	s, err := c.source.Fetch(ctx, pair, start, end)
	if err != nil {
		return domain.RateSeries{}, err
	}
	c.cache.SetWithTTL(key, s, 1, c.ttl)
	return s, nil
}

// Wait blocks until pending writes are visible to Get.
func (c *CachingSource) Wait() { c.cache.Wait() }

func (c *CachingSource) Close() { c.cache.Close() }

func toKey(p domain.Pair, start, end civil.Date) string {
	return p.Base + ":" + p.Quote + ":" + start.String() + ":" + end.String()
}
