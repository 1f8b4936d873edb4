package cache

import (
	"context"
	"sync"
	"time"

	"shopify-insights/internal/ports"
)

// DefaultSweepEvery is how many writes pass between opportunistic sweeps.
const DefaultSweepEvery = 100

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCache is a process-local cache. Expired entries are dropped when read
// and swept every sweepEvery writes; there is no background goroutine.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	writes     int
	sweepEvery int
	now        func() time.Time
}

func NewMemoryCache(sweepEvery int) *MemoryCache {
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepEvery
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		sweepEvery: sweepEvery,
		now:        time.Now,
	}
}

var _ ports.Cache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value; a ttl <= 0 never expires.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry

	c.writes++
	if c.writes >= c.sweepEvery {
		c.writes = 0
		c.sweepLocked()
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until they are swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) sweepLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}
