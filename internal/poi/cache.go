// Package poi is a small read-through cache in front of the POI table:
// POIs are seeded, near-static data, so re-querying Postgres for every
// map POI request (GET /map/pois) is wasted round trips. Grounded on hashicorp/golang-lru's Expirable cache, the
// same library's API the rest of the retrieved corpus reaches for
// in-process TTL caching.
package poi

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/titanbreach/engine/pkg/models"
)

// Store is the persistence surface the cache sits in front of.
type Store interface {
	AllActivePOIs(ctx context.Context) ([]models.POI, error)
}

const (
	allKey = "all"
	ttl    = 5 * time.Minute
)

// Cache is a single-entry (whole-table), TTL-expiring read-through cache.
// A single entry is sufficient: the active POI set is small enough (low
// thousands) that caching "all of them" once is cheaper than per-region
// cache keys and their invalidation.
type Cache struct {
	store Store
	lru   *lru.LRU[string, []models.POI]
}

// New constructs the cache.
func New(store Store) *Cache {
	return &Cache{store: store, lru: lru.NewLRU[string, []models.POI](1, nil, ttl)}
}

// All returns every active POI, loading from the store on a cache miss.
func (c *Cache) All(ctx context.Context) ([]models.POI, error) {
	if pois, ok := c.lru.Get(allKey); ok {
		return pois, nil
	}
	pois, err := c.store.AllActivePOIs(ctx)
	if err != nil {
		return nil, err
	}
	c.lru.Add(allKey, pois)
	return pois, nil
}

// Invalidate drops the cached POI set, forcing the next All call to reload.
func (c *Cache) Invalidate() {
	c.lru.Remove(allKey)
}
