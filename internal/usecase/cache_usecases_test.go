package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/testutil"
)

func TestApplyInvalidation(t *testing.T) {
	cache := testutil.NewCache()
	cache.Seed("a", "1")
	cache.Seed("b", "2")
	cache.Seed("c", "3")
	uc := ApplyInvalidation{Cache: cache}

	err := uc.Execute(context.Background(), []byte(`{"keys":["a","b"],"reason":"access_denied"}`))
	require.NoError(t, err)

	assert.False(t, cache.Has("a"))
	assert.False(t, cache.Has("b"))
	assert.True(t, cache.Has("c"))
}

func TestApplyInvalidation_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"not json": "{",
		"no keys":  `{"keys":[],"reason":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			cache := testutil.NewCache()
			err := ApplyInvalidation{Cache: cache}.Execute(context.Background(), []byte(raw))
			assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
			assert.Empty(t, cache.Removes())
		})
	}
}

type snapshot map[string]string

func (s snapshot) LoadAll(_ context.Context, fn func(key string, value []byte, ttl time.Duration) error) error {
	for k, v := range s {
		if err := fn(k, []byte(v), time.Minute); err != nil {
			return err
		}
	}
	return nil
}

type failingSnapshot struct{}

func (failingSnapshot) LoadAll(context.Context, func(string, []byte, time.Duration) error) error {
	return errors.New("store unavailable")
}

func TestWarmCache(t *testing.T) {
	cache := testutil.NewCache()
	n, err := WarmCache{Store: snapshot{"k1": "v1", "k2": "v2"}, Cache: cache}.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, cache.Has("k1"))
	assert.True(t, cache.Has("k2"))
}

func TestWarmCache_SkipsFailedPuts(t *testing.T) {
	cache := testutil.NewCache()
	cache.PutErr = assert.AnError

	n, err := WarmCache{Store: snapshot{"k1": "v1"}, Cache: cache}.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWarmCache_StoreError(t *testing.T) {
	_, err := WarmCache{Store: failingSnapshot{}, Cache: testutil.NewCache()}.Execute(context.Background())
	assert.Error(t, err)
}
