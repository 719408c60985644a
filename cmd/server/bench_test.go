package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/dataservice-read/internal/adapter/cache"
	"github.com/example/dataservice-read/internal/adapter/httpapi"
	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/testutil"
	"github.com/example/dataservice-read/internal/usecase"
)

func seededCache(n int) *cache.MemoryCache {
	c := cache.NewMemoryCache()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p-%d", i)
		_ = c.Put(domain.PartitionKey(testCatalog, "roads", id, 1),
			[]byte(fmt.Sprintf(`{"partition":%q,"version":1,"dataHandle":"h-%d"}`, id, i)), 0)
	}
	return c
}

func BenchmarkHandleGet(b *testing.B) {
	uc, err := usecase.NewGetPartitionByID(client.Settings{Cache: seededCache(1000), Transport: testutil.NewTransport()})
	if err != nil {
		b.Fatal(err)
	}
	router := httpapi.NewServer(uc, nil).Router

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			path := fmt.Sprintf("/api/catalogs/%s/layers/roads/partitions/p-%d?version=1&fetch=cache", testCatalog, i%1000)
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			i++
		}
	})
}

func BenchmarkGetPartitionCacheOnly(b *testing.B) {
	uc, err := usecase.NewGetPartitionByID(client.Settings{Cache: seededCache(1000), Transport: testutil.NewTransport()})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := domain.PartitionRequest{}.
			WithPartitionID(fmt.Sprintf("p-%d", i%1000)).
			WithVersion(1).
			WithFetchOption(domain.CacheOnly)
		if _, err := uc.Execute(cancellation.New(), testCatalog, "roads", req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := seededCache(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(domain.PartitionKey(testCatalog, "roads", fmt.Sprintf("p-%d", i%10000), 1))
	}
}
