package client

import (
	"errors"
	"time"

	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/metrics"
)

const (
	// DefaultLookupURL is the well-known API lookup service.
	DefaultLookupURL = "https://api-lookup.data.api.platform.here.com/lookup/v1"
	// DefaultRequestTimeout bounds every single network send.
	DefaultRequestTimeout = 60 * time.Second
)

// Settings carries the injected collaborators shared by all calls. Cache and
// Transport must be safe for concurrent use and outlive every call.
type Settings struct {
	Cache     domain.Cache
	Transport domain.Transport

	// RequestTimeout applies to each network send separately.
	RequestTimeout time.Duration
	// LookupURL is the base of the API lookup service.
	LookupURL string
	// DefaultExpiry is passed to Cache.Put; zero keeps entries forever.
	DefaultExpiry time.Duration

	// Optional.
	Metrics       metrics.Collector
	Invalidations domain.InvalidationPublisher
}

// Validate reports missing collaborators.
func (s Settings) Validate() error {
	if s.Cache == nil {
		return errors.New("settings: cache is required")
	}
	if s.Transport == nil {
		return errors.New("settings: transport is required")
	}
	return nil
}

// WithDefaults fills unset optional fields.
func (s Settings) WithDefaults() Settings {
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.LookupURL == "" {
		s.LookupURL = DefaultLookupURL
	}
	if s.Metrics == nil {
		s.Metrics = metrics.NewNop()
	}
	return s
}
