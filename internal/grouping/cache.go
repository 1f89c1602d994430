package grouping

import (
	"sync"
	"time"
)

// DefaultTTL is how long a resolved toplevel is reused.
const DefaultTTL = 5 * time.Minute

// Entry is a cached toplevel resolution. A nil Value records a failure.
type Entry struct {
	Value     *string
	FetchedAt time.Time
}

// TopLevelCache maps normalized paths to their resolved toplevel. Writes
// are last-write-wins; it is safe for concurrent use.
type TopLevelCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
}

// NewTopLevelCache creates a cache whose entries expire after ttl. A nil
// now uses time.Now.
func NewTopLevelCache(ttl time.Duration, now func() time.Time) *TopLevelCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TopLevelCache{ttl: ttl, now: now, entries: make(map[string]Entry)}
}

// Get returns the entry for path if it is younger than the TTL.
func (c *TopLevelCache) Get(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || c.now().Sub(e.FetchedAt) >= c.ttl {
		return Entry{}, false
	}
	return e, true
}

// Set records the resolution of path.
func (c *TopLevelCache) Set(path string, value *string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = Entry{Value: value, FetchedAt: c.now()}
}
