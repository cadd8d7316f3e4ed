package raster

import (
	"context"
	"sync"

	"github.com/nutrient-balance/nbalance/internal/domain"
	"github.com/nutrient-balance/nbalance/internal/observability"
	"golang.org/x/sync/singleflight"
)

var _ domain.RasterInvalidator = (*Cache)(nil)

// Cache wraps a RasterSource and keeps every successfully opened raster for
// the lifetime of the process. Concurrent first opens of the same URL share
// one call to the inner source. Failed opens are not cached, so a later call
// retries.
type Cache struct {
	inner   domain.RasterSource
	metrics *observability.Metrics

	group   singleflight.Group
	mu      sync.RWMutex
	rasters map[string]domain.DepositionRaster
}

// NewCache creates a cache decorator around a raster source.
func NewCache(inner domain.RasterSource, metrics *observability.Metrics) *Cache {
	return &Cache{
		inner:   inner,
		metrics: metrics,
		rasters: make(map[string]domain.DepositionRaster),
	}
}

// Open returns the cached raster for url, opening it on first use.
func (c *Cache) Open(ctx context.Context, url string) (domain.DepositionRaster, error) {
	c.mu.RLock()
	r, ok := c.rasters[url]
	c.mu.RUnlock()
	if ok {
		c.metrics.RasterCache.WithLabelValues("hit").Inc()
		return r, nil
	}
	c.metrics.RasterCache.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(url, func() (any, error) {
		r, err := c.inner.Open(ctx, url)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.rasters[url] = r
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(domain.DepositionRaster), nil
}

// Invalidate drops the raster cached for url. The calculator calls it when
// no pixel of an opened raster can be read any more.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	delete(c.rasters, url)
	c.mu.Unlock()
}
