package discovery

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"catalog-discovery/metrics"
)

// ResultCache is a process-wide, size and TTL bounded namespace of result
// pages. It is safe for concurrent use; Clear may race with readers, at
// worst costing one redundant recomputation.
type ResultCache struct {
	name string
	lru  *expirable.LRU[string, ResultPage]
}

// NewResultCache creates a namespace holding at most size pages for ttl.
func NewResultCache(name string, size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 1024
	}
	return &ResultCache{
		name: name,
		lru:  expirable.NewLRU[string, ResultPage](size, nil, ttl),
	}
}

// Get returns a copy of the cached page.
func (c *ResultCache) Get(key string) (ResultPage, bool) {
	page, ok := c.lru.Get(key)
	if !ok {
		return ResultPage{}, false
	}
	return page.clone(), true
}

// Put stores a copy of page.
func (c *ResultCache) Put(key string, page ResultPage) {
	c.lru.Add(key, page.clone())
}

// Clear drops every page in the namespace.
func (c *ResultCache) Clear() {
	c.lru.Purge()
	metrics.CacheInvalidations.WithLabelValues(c.name).Inc()
}

// Len reports the number of live pages.
func (c *ResultCache) Len() int { return c.lru.Len() }

// PageFunc computes a fresh result page.
type PageFunc func(ctx context.Context, p Params) (ResultPage, error)

// GuardedCache memoizes a PageFunc and re-checks every hit against the
// store: if any project on a cached page no longer exists, the namespace is
// cleared and the page recomputed once.
type GuardedCache struct {
	cache   *ResultCache
	store   Store
	compute PageFunc
	log     *zap.SugaredLogger
}

// NewGuardedCache wraps compute.
func NewGuardedCache(cache *ResultCache, store Store, compute PageFunc, log *zap.SugaredLogger) *GuardedCache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GuardedCache{cache: cache, store: store, compute: compute, log: log}
}

// Search returns the page for p, which must already be normalized.
func (g *GuardedCache) Search(ctx context.Context, p Params) (ResultPage, error) {
	key := p.CacheKey()
	if page, ok := g.cache.Get(key); ok {
		if g.verify(ctx, page) {
			metrics.CacheRequests.WithLabelValues(g.cache.name, "hit").Inc()
			return page, nil
		}
		metrics.CacheRequests.WithLabelValues(g.cache.name, "stale").Inc()
		g.log.Infow("Cached page references missing projects, invalidating",
			zap.String("cache", g.cache.name),
			zap.Int("items", len(page.Items)),
		)
		g.cache.Clear()
	} else {
		metrics.CacheRequests.WithLabelValues(g.cache.name, "miss").Inc()
	}

	page, err := g.compute(ctx, p)
	if err != nil {
		return ResultPage{}, err
	}
	g.cache.Put(key, page)
	return page, nil
}

// Invalidate clears the namespace. Write paths call it after publish,
// unpublish and delete.
func (g *GuardedCache) Invalidate() {
	g.cache.Clear()
}

func (g *GuardedCache) verify(ctx context.Context, page ResultPage) bool {
	if len(page.Items) == 0 {
		return true
	}
	n, err := g.store.ExistsAllIDs(ctx, page.IDs())
	if err != nil {
		g.log.Warnw("Cache verification failed", zap.Error(err))
		return false
	}
	return n == int64(len(page.Items))
}
