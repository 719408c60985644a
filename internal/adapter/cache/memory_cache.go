package cache

import (
	"bytes"
	"sync"
	"time"

	"github.com/example/dataservice-read/internal/domain"
)

type memoryEntry struct {
	value   []byte
	expires time.Time // zero: never
}

type MemoryCache struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[string]memoryEntry), now: time.Now}
}

var _ domain.Cache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		// re-check, the entry may have been replaced meanwhile
		if cur, ok := c.store[key]; ok && cur.expires.Equal(e.expires) {
			delete(c.store, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

func (c *MemoryCache) Put(key string, value []byte, expiry time.Duration) error {
	e := memoryEntry{value: bytes.Clone(value)}
	if expiry > 0 {
		e.expires = c.now().Add(expiry)
	}
	c.mu.Lock()
	c.store[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Remove(key string) error {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
