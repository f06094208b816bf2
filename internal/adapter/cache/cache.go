// Package cache memoizes projection transforms so replayed or duplicated batches are
// not rebuilt.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	"github.com/couchcryptid/covid-projection-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Transformer is the transform stage being cached.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// CachedTransformer wraps a Transformer with an in-memory LRU keyed by payload digest.
// A cache hit returns the summary as first computed, including its processed_at.
type CachedTransformer struct {
	inner   Transformer
	cache   *lru.Cache[string, domain.OutputEvent]
	metrics *observability.Metrics
}

// NewCachedTransformer creates a cache decorator holding up to maxEntries summaries.
func NewCachedTransformer(inner Transformer, maxEntries int, metrics *observability.Metrics) (*CachedTransformer, error) {
	c, err := lru.New[string, domain.OutputEvent](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedTransformer{inner: inner, cache: c, metrics: metrics}, nil
}

func (c *CachedTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	key := digest(raw.Value)
	if out, ok := c.cache.Get(key); ok {
		c.metrics.ProjectionCache.WithLabelValues("hit").Inc()
		return out, nil
	}
	c.metrics.ProjectionCache.WithLabelValues("miss").Inc()

	out, err := c.inner.Transform(ctx, raw)
	if err != nil {
		// Failures are not cached.
		return out, err
	}
	c.cache.Add(key, out)
	c.metrics.ProjectionCacheSize.Set(float64(c.cache.Len()))
	return out, nil
}

// Len reports the number of cached summaries.
func (c *CachedTransformer) Len() int {
	return c.cache.Len()
}

func digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
