package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "")

	p.RecordRequest("lookup", "ok", 0.01)
	p.RecordRequest("lookup", "ok", 0.02)
	p.RecordRequest("partition", "access_denied", 0.5)
	p.RecordCacheAccess("get", "hit")
	p.RecordInvalidation("access_denied")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.requests.WithLabelValues("lookup", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("partition", "access_denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.cacheAccess.WithLabelValues("get", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.invalidations.WithLabelValues("access_denied")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"dsread_pipeline_requests_total",
		"dsread_pipeline_request_duration_seconds",
		"dsread_cache_operations_total",
		"dsread_cache_invalidations_total",
	}, names)
}

func TestPrometheus_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewPrometheus(reg, "x")
	b := NewPrometheus(reg, "x")

	a.RecordCacheAccess("put", "ok")
	require.NotPanics(t, func() { b.RecordCacheAccess("put", "ok") })

	assert.Equal(t, 2.0, testutil.ToFloat64(a.cacheAccess.WithLabelValues("put", "ok")))
}

func TestNop(t *testing.T) {
	var c Collector = NewNop()
	assert.NotPanics(t, func() {
		c.RecordRequest("lookup", "ok", 1)
		c.RecordCacheAccess("get", "miss")
		c.RecordInvalidation("x")
	})
}
