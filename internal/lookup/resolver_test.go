package lookup

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dataservice-read/internal/cacheclient"
	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/testutil"
)

const (
	catalog     = "hrn:here:data:::catalog"
	baseURL     = "https://metadata.example/metadata/v1/catalogs/catalog"
	lookupReply = `[{"api":"query","version":"v1","baseURL":"https://query.example","parameters":{}},` +
		`{"api":"metadata","version":"v1","baseURL":"` + baseURL + `","parameters":{}}]`
)

var lookupURL = client.DefaultLookupURL + "/resources/hrn:here:data:::catalog/apis/metadata/v1"

func newResolver(t *testing.T) (*Resolver, *testutil.Transport, *testutil.Cache) {
	t.Helper()
	tr := testutil.NewTransport()
	cache := testutil.NewCache()
	s := client.Settings{Cache: cache, Transport: tr, RequestTimeout: time.Second}
	return NewResolver(s, cacheclient.New(cache, 0, nil)), tr, cache
}

func TestURL(t *testing.T) {
	assert.Equal(t, lookupURL, URL(client.DefaultLookupURL, catalog, "metadata", "v1"))
	assert.Equal(t, "http://l/resources/a%2Fb/apis/metadata/v1", URL("http://l", "a/b", "metadata", "v1"))
}

func TestResolve_FetchesAndCaches(t *testing.T) {
	r, tr, cache := newResolver(t)
	tr.Respond(lookupURL, http.StatusOK, lookupReply)

	e, err := r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.OnlineIfAbsent)
	require.NoError(t, err)
	assert.Equal(t, baseURL, e.BaseURL)
	assert.True(t, cache.Has(domain.LookupKey(catalog, "metadata", "v1")))

	// second call is served from the cache
	_, err = r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.OnlineIfAbsent)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.SendCount(lookupURL))
}

func TestResolve_OnlineOnlySkipsCache(t *testing.T) {
	r, tr, cache := newResolver(t)
	tr.Respond(lookupURL, http.StatusOK, lookupReply)
	r.cache.PutEndpoint(context.Background(), catalog, "metadata", "v1", domain.ServiceEndpoint{BaseURL: "stale"})
	cache.Reset()

	e, err := r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.OnlineOnly)
	require.NoError(t, err)
	assert.Equal(t, baseURL, e.BaseURL)
	assert.Empty(t, cache.Gets())
	assert.Equal(t, 1, tr.SendCount(lookupURL))
}

func TestResolve_CacheOnlyMiss(t *testing.T) {
	r, tr, _ := newResolver(t)

	_, err := r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.CacheOnly)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, tr.Sent())
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"forbidden", http.StatusForbidden, "", domain.ErrAccessDenied},
		{"unauthorized", http.StatusUnauthorized, "", domain.ErrAccessDenied},
		{"server error", http.StatusInternalServerError, "", domain.ErrServiceError},
		{"not json", http.StatusOK, "<html>", domain.ErrServiceError},
		{"not a list", http.StatusOK, `{"api":"metadata"}`, domain.ErrServiceError},
		{"api missing", http.StatusOK, `[{"api":"query","version":"v1","baseURL":"x"}]`, domain.ErrNotFound},
		{"empty base url", http.StatusOK, `[{"api":"metadata","version":"v1","baseURL":""}]`, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, tr, cache := newResolver(t)
			tr.Respond(lookupURL, tc.status, tc.body)

			_, err := r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.OnlineIfAbsent)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, cache.Puts())
		})
	}
}

func TestResolve_Timeout(t *testing.T) {
	tr := testutil.NewTransport()
	cache := testutil.NewCache()
	s := client.Settings{Cache: cache, Transport: tr, RequestTimeout: 30 * time.Millisecond}
	r := NewResolver(s, cacheclient.New(cache, 0, nil))
	tr.Handle(lookupURL, testutil.Route{Hang: true})

	_, err := r.Resolve(cancellation.New(), catalog, "metadata", "v1", domain.OnlineOnly)
	assert.ErrorIs(t, err, domain.ErrRequestTimeout)
	assert.Len(t, tr.Cancelled(), 1)
}
