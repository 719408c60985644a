// Package metrics records pipeline and cache activity.
package metrics

// Collector records operational metrics. Implementations must be safe for
// concurrent use and must not block.
type Collector interface {
	// RecordRequest records the outcome of one network stage ("lookup",
	// "partition"). result is "ok" or an error kind name.
	RecordRequest(stage, result string, seconds float64)

	// RecordCacheAccess records a cache operation ("get", "put", "remove")
	// and its result ("hit", "miss", "ok", "error").
	RecordCacheAccess(op, result string)

	// RecordInvalidation records a removed cache key and why.
	RecordInvalidation(reason string)
}

// Nop discards everything.
type Nop struct{}

var _ Collector = (*Nop)(nil)

// NewNop returns a collector that records nothing.
func NewNop() *Nop { return &Nop{} }

func (*Nop) RecordRequest(string, string, float64) {}

func (*Nop) RecordCacheAccess(string, string) {}

func (*Nop) RecordInvalidation(string) {}
