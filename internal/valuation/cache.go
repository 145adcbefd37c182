package valuation

import (
	"strings"
	"sync"

	"github.com/sells-group/appeal-cli/internal/address"
)

// Cache stores completed lookups keyed by normalized address. It lives for
// the process; there is no TTL or size bound. The zero value is not usable;
// call NewCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Valuation
}

// NewCache returns an empty lookup cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Valuation)}
}

// CacheKey returns the cache key for normalized components.
func CacheKey(c address.Components) string {
	return strings.ToLower(c.AddressLine) + "|" + strings.ToLower(c.CityStateZip)
}

// Get returns the cached valuation for key.
func (c *Cache) Get(key string) (*Valuation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores v under key, replacing any existing entry.
func (c *Cache) Set(key string, v *Valuation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Evict removes a single entry.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Valuation)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
