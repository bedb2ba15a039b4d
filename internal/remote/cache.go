package remote

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// CacheKey builds the deterministic cache key for one request. url.Values
// encoding sorts parameters by key, so the key is invariant under the order
// parameters were added in.
func CacheKey(serviceID, endpoint string, params url.Values) string {
	return serviceID + "|" + endpoint + "|" + params.Encode()
}

type cacheEntry struct {
	value    []byte
	storedAt time.Time
}

// responseCache is the session-scoped response cache. Entries live until the
// orchestrator clears the cache at the end of a run.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry.value, ok
}

func (c *responseCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: time.Now()}
}

// clear drops all entries, or only those belonging to the given services.
func (c *responseCache) clear(serviceIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(serviceIDs) == 0 {
		c.entries = make(map[string]cacheEntry)
		return
	}

	for _, id := range serviceIDs {
		prefix := id + "|"
		for key := range c.entries {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
			}
		}
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
