// Package query is a small cache for backend reads: each entry is a key, the
// function that fetches it and how long a fetched value stays fresh.
package query

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache stores fetched values by key. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	gen     uint64 // bumped by Invalidate so in-flight results are not stored
	group   singleflight.Group
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Fetch returns the cached value for key when it is younger than staleTime.
// Otherwise it calls fn, sharing one call between concurrent callers of the
// same key. Errors are returned but never cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, staleTime time.Duration, fn func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && staleTime > 0 && c.now().Sub(e.fetchedAt) < staleTime {
		c.mu.Unlock()
		return e.value.(T), nil
	}
	gen := c.gen
	c.mu.Unlock()

	// Calls started before an Invalidate are not shared with later callers.
	v, err, _ := c.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen && staleTime > 0 {
			c.entries[key] = entry{value: val, fetchedAt: c.now()}
		}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every key starting with prefix. An empty prefix clears
// the cache. Fetches already in flight will not repopulate dropped keys.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
