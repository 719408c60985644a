package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector on top of a prometheus.Registerer.
// Metrics are registered lazily on first use.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	cacheAccess   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a collector. A nil reg uses prometheus.DefaultRegisterer;
// an empty namespace defaults to "dsread".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "dsread"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Network stage outcomes by stage and result.",
		}, []string{"stage", "result"})
		p.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "pipeline",
			Name:      "request_duration_seconds",
			Help:      "Latency of network stages in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"stage"})
		p.cacheAccess = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by operation and result.",
		}, []string{"op", "result"})
		p.invalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Cache keys removed by reason.",
		}, []string{"reason"})

		p.requests = register(p.reg, p.requests)
		p.latency = register(p.reg, p.latency)
		p.cacheAccess = register(p.reg, p.cacheAccess)
		p.invalidations = register(p.reg, p.invalidations)
	})
}

// register returns the collector already registered under the same
// descriptor, if any, so several Prometheus values can share a registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (p *Prometheus) RecordRequest(stage, result string, seconds float64) {
	p.ensureRegistered()
	p.requests.WithLabelValues(stage, result).Inc()
	p.latency.WithLabelValues(stage).Observe(seconds)
}

func (p *Prometheus) RecordCacheAccess(op, result string) {
	p.ensureRegistered()
	p.cacheAccess.WithLabelValues(op, result).Inc()
}

func (p *Prometheus) RecordInvalidation(reason string) {
	p.ensureRegistered()
	p.invalidations.WithLabelValues(reason).Inc()
}
