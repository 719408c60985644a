package cache

import (
	"errors"
	"time"

	"github.com/example/dataservice-read/internal/domain"
)

// TieredCache reads through a fast front cache to a persistent back cache.
// Writes and removals go to both. A back hit is copied to the front with the
// remaining lifetime of the back entry when the back tier is a TTLCache.
type TieredCache struct {
	Front domain.Cache
	Back  domain.Cache
}

var _ domain.Cache = (*TieredCache)(nil)

func NewTieredCache(front, back domain.Cache) *TieredCache {
	return &TieredCache{Front: front, Back: back}
}

// TTLCache is a cache that can report the remaining lifetime of an entry.
// ttl is zero for entries without expiry.
type TTLCache interface {
	domain.Cache
	GetWithTTL(key string) (value []byte, ttl time.Duration, ok bool, err error)
}

func (c *TieredCache) Get(key string) ([]byte, bool, error) {
	if v, ok, err := c.Front.Get(key); err == nil && ok {
		return v, true, nil
	}
	back, ok := c.Back.(TTLCache)
	if !ok {
		// remaining lifetime unknown, serve from the back tier every time
		return c.Back.Get(key)
	}
	v, ttl, ok, err := back.GetWithTTL(key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.Front.Put(key, v, ttl)
	return v, true, nil
}

func (c *TieredCache) Put(key string, value []byte, expiry time.Duration) error {
	return errors.Join(c.Front.Put(key, value, expiry), c.Back.Put(key, value, expiry))
}

// Remove removes from both tiers even if one of them fails.
func (c *TieredCache) Remove(key string) error {
	return errors.Join(c.Front.Remove(key), c.Back.Remove(key))
}
