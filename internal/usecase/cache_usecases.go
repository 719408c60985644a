package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/metrics"
)

// ApplyInvalidation removes the keys named by an incoming invalidation message.
type ApplyInvalidation struct {
	Cache   domain.Cache
	Metrics metrics.Collector
}

func (uc ApplyInvalidation) Execute(ctx context.Context, raw []byte) error {
	var inv domain.Invalidation
	if err := json.Unmarshal(raw, &inv); err != nil {
		return domain.NewError(domain.ErrorKindPreconditionFailed, "undecodable invalidation: %v", err)
	}
	if len(inv.Keys) == 0 {
		return domain.NewError(domain.ErrorKindPreconditionFailed, "invalidation without keys")
	}

	var errs []error
	for _, key := range inv.Keys {
		if err := uc.Cache.Remove(key); err != nil {
			errs = append(errs, err)
			continue
		}
		if uc.Metrics != nil {
			uc.Metrics.RecordInvalidation(inv.Reason)
		}
	}
	slogcontext.FromCtx(ctx).Debug("invalidation applied", "keys", len(inv.Keys), "reason", inv.Reason)
	return errors.Join(errs...)
}

// WarmCache copies every live entry of a persistent store into the cache at startup.
type WarmCache struct {
	Store domain.CacheSnapshot
	Cache domain.Cache
}

func (uc WarmCache) Execute(ctx context.Context) (int, error) {
	loaded := 0
	err := uc.Store.LoadAll(ctx, func(key string, value []byte, ttl time.Duration) error {
		if err := uc.Cache.Put(key, value, ttl); err != nil {
			// skip the entry, a miss falls through to the store anyway
			slogcontext.FromCtx(ctx).Warn("warm cache put failed", "key", key, "error", err)
			return nil
		}
		loaded++
		return nil
	})
	return loaded, err
}
