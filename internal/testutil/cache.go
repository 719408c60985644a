package testutil

import (
	"sync"
	"time"

	"github.com/example/dataservice-read/internal/domain"
)

// Cache is an in-memory domain.Cache that records every call.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]byte
	expiry  map[string]time.Duration
	gets    []string
	puts    []string
	removes []string

	// PutErr and GetErr, when set, are returned by every Put or Get.
	PutErr error
	GetErr error
}

var _ domain.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte), expiry: make(map[string]time.Duration)}
}

// Seed stores value without recording a put.
func (c *Cache) Seed(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = []byte(value)
}

func (c *Cache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, key)
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *Cache) Put(key string, value []byte, expiry time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, key)
	if c.PutErr != nil {
		return c.PutErr
	}
	c.entries[key] = append([]byte(nil), value...)
	c.expiry[key] = expiry
	return nil
}

// GetWithTTL returns the entry together with the expiry it was stored with.
// Seeded entries report zero.
func (c *Cache) GetWithTTL(key string) ([]byte, time.Duration, bool, error) {
	v, ok, err := c.Get(key)
	if err != nil || !ok {
		return nil, 0, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return v, c.expiry[key], true, nil
}

// Expiry returns the expiry passed to the last successful Put of key.
func (c *Cache) Expiry(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.expiry[key]
	return d, ok
}

func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removes = append(c.removes, key)
	delete(c.entries, key)
	delete(c.expiry, key)
	return nil
}

// Has reports whether key is stored.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *Cache) Gets() []string    { return c.snapshot(&c.gets) }
func (c *Cache) Puts() []string    { return c.snapshot(&c.puts) }
func (c *Cache) Removes() []string { return c.snapshot(&c.removes) }

// Reset forgets recorded calls but keeps the entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets, c.puts, c.removes = nil, nil, nil
}

func (c *Cache) snapshot(s *[]string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), (*s)...)
}
