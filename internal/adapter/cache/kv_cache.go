package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/example/dataservice-read/internal/domain"
)

const defaultKVOpTimeout = 2 * time.Second

// KVCache stores entries in a NATS JetStream key/value bucket so several
// processes share one cache. Expiry is governed by the bucket TTL; the
// per-entry expiry passed to Put is ignored.
type KVCache struct {
	kv        jetstream.KeyValue
	opTimeout time.Duration
}

var _ domain.Cache = (*KVCache)(nil)

// NewKVCache wraps an opened bucket. A non-positive opTimeout uses 2s.
func NewKVCache(kv jetstream.KeyValue, opTimeout time.Duration) *KVCache {
	if opTimeout <= 0 {
		opTimeout = defaultKVOpTimeout
	}
	return &KVCache{kv: kv, opTimeout: opTimeout}
}

// EnsureBucket creates the bucket or opens it if it already exists.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	cfg := jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "dataservice-read partition and lookup cache",
		TTL:         ttl,
	}
	kv, err := js.CreateKeyValue(ctx, cfg)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) {
		return nil, fmt.Errorf("create kv bucket %s: %w", bucket, err)
	}
	kv, err = js.KeyValue(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// kvKey maps a cache key onto the KV key alphabet. Cache keys contain ':'
// which KV keys do not allow; base64url keeps the mapping injective.
func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (c *KVCache) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	entry, err := c.kv.Get(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

func (c *KVCache) Put(key string, value []byte, _ time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	if _, err := c.kv.Put(ctx, kvKey(key), value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (c *KVCache) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	if err := c.kv.Delete(ctx, kvKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
