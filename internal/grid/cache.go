package grid

import (
	"context"

	"github.com/EdenYYT/RapidGMPE/internal/lru"
)

// Constructor builds grids.
type Constructor interface {
	Build(ctx context.Context, spec Spec) (*Grid, error)
}

// CachedBuilder wraps a Constructor with an in-memory LRU cache so repeated
// runs for the same event and site raster reuse the resampled grid.
type CachedBuilder struct {
	inner Constructor
	cache *lru.Cache[Spec, *Grid]

	// OnLookup, when set, is called with the outcome of every cache lookup.
	OnLookup func(hit bool)
}

// NewCachedBuilder creates a cache decorator around a grid constructor.
func NewCachedBuilder(inner Constructor, maxEntries int) *CachedBuilder {
	return &CachedBuilder{
		inner: inner,
		cache: lru.New[Spec, *Grid](maxEntries),
	}
}

func (c *CachedBuilder) Build(ctx context.Context, spec Spec) (*Grid, error) {
	key, err := spec.withDefaults()
	if err != nil {
		return nil, err
	}
	if g, ok := c.cache.Get(key); ok {
		c.observe(true)
		return g, nil
	}
	c.observe(false)

	g, err := c.inner.Build(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, g)
	return g, nil
}

func (c *CachedBuilder) observe(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}
