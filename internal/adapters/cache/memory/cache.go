package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/zalo-accounts/internal/ports"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-process TTL cache. Expired entries are dropped lazily on
// read and by Sweep.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	clock   ports.Clock
}

var _ ports.Cache = (*Cache)(nil)

func New(clock ports.Clock) *Cache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Cache{entries: map[string]entry{}, clock: clock}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value; a non-positive ttl never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Sweep removes every expired entry and reports how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
