package albumart

import (
	"sync"

	"github.com/tmaury/mpdart/internal/domain/track"
	"github.com/tmaury/mpdart/internal/infra/enrichment"
)

// Cache memoizes the last successfully resolved record per (artist, album)
// pair. Entries only ever hold records with non-empty IDs, live for the
// process lifetime and are never evicted. Guarded by a mutex so concurrent
// resolutions can share one cache.
type Cache struct {
	mu      sync.Mutex
	records map[track.CacheKey]enrichment.Record
}

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return &Cache{
		records: make(map[track.CacheKey]enrichment.Record),
	}
}

// Lookup returns the cached record for a key, if any.
func (c *Cache) Lookup(key track.CacheKey) (enrichment.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	return rec, ok
}

// Store unconditionally overwrites the record for a key.
func (c *Cache) Store(key track.CacheKey, rec enrichment.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[key] = rec
}
