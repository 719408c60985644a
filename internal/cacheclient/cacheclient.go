// Package cacheclient wraps the injected domain.Cache with typed accessors
// for partitions and resolved API endpoints. Every operation is best-effort:
// read failures count as misses and write failures are logged and dropped.
package cacheclient

import (
	"context"
	"encoding/json"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/metrics"
)

type Client struct {
	cache   domain.Cache
	expiry  time.Duration
	metrics metrics.Collector
}

// New returns a Client. A nil collector records nothing.
func New(cache domain.Cache, expiry time.Duration, m metrics.Collector) *Client {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Client{cache: cache, expiry: expiry, metrics: m}
}

// GetPartition reads a cached partition.
func (c *Client) GetPartition(ctx context.Context, catalog, layer, partitionID string, version int64) (domain.Partition, bool) {
	var p domain.Partition
	key := domain.PartitionKey(catalog, layer, partitionID, version)
	if !c.get(ctx, key, &p) {
		return domain.Partition{}, false
	}
	if !p.Complete() {
		slogcontext.FromCtx(ctx).Warn("cached partition incomplete", "key", key)
		return domain.Partition{}, false
	}
	return p, true
}

// PutPartition caches p under its own id and the requested version, with the
// configured expiry.
func (c *Client) PutPartition(ctx context.Context, catalog, layer string, version int64, p domain.Partition) {
	c.put(ctx, domain.PartitionKey(catalog, layer, p.Partition, version), p, c.expiry)
}

// RemovePartition drops a cached partition and returns the removed key.
func (c *Client) RemovePartition(ctx context.Context, catalog, layer, partitionID string, version int64) string {
	key := domain.PartitionKey(catalog, layer, partitionID, version)
	c.Remove(ctx, key)
	return key
}

// GetEndpoint reads a cached lookup result.
func (c *Client) GetEndpoint(ctx context.Context, catalog, service, serviceVersion string) (domain.ServiceEndpoint, bool) {
	var e domain.ServiceEndpoint
	ok := c.get(ctx, domain.LookupKey(catalog, service, serviceVersion), &e)
	return e, ok
}

// PutEndpoint caches a resolved endpoint under the requested service name and
// version. Endpoints never expire.
func (c *Client) PutEndpoint(ctx context.Context, catalog, service, serviceVersion string, e domain.ServiceEndpoint) {
	c.put(ctx, domain.LookupKey(catalog, service, serviceVersion), e, 0)
}

// Remove drops key.
func (c *Client) Remove(ctx context.Context, key string) {
	if err := c.cache.Remove(key); err != nil {
		c.metrics.RecordCacheAccess("remove", "error")
		slogcontext.FromCtx(ctx).Warn("cache remove failed", "key", key, "error", err)
		return
	}
	c.metrics.RecordCacheAccess("remove", "ok")
}

func (c *Client) get(ctx context.Context, key string, v any) bool {
	raw, ok, err := c.cache.Get(key)
	if err != nil {
		c.metrics.RecordCacheAccess("get", "error")
		slogcontext.FromCtx(ctx).Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		c.metrics.RecordCacheAccess("get", "miss")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.metrics.RecordCacheAccess("get", "error")
		slogcontext.FromCtx(ctx).Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	c.metrics.RecordCacheAccess("get", "hit")
	return true
}

func (c *Client) put(ctx context.Context, key string, v any, expiry time.Duration) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = c.cache.Put(key, raw, expiry)
	}
	if err != nil {
		c.metrics.RecordCacheAccess("put", "error")
		slogcontext.FromCtx(ctx).Warn("cache write failed", "key", key, "error", err)
		return
	}
	c.metrics.RecordCacheAccess("put", "ok")
}
