package domain

import (
	"context"
	"net/http"
	"time"
)

// Cache is the externally supplied key/value store. Values are opaque bytes;
// a miss is (nil, false, nil). Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	// Put stores value; an expiry of zero means the entry never expires.
	Put(key string, value []byte, expiry time.Duration) error
	Remove(key string) error
}

// RequestID identifies an in-flight transport request. IDs are never reused
// by a transport instance.
type RequestID uint64

// NetworkRequest is a request handed to the Transport.
type NetworkRequest struct {
	Method string
	URL    string
	Header http.Header
}

// NetworkResponse is delivered once per accepted request. Err carries a
// transport signal (ErrTransport*) when no HTTP status could be obtained.
type NetworkResponse struct {
	RequestID RequestID
	Status    int
	Err       error
}

type (
	// HeaderCallback receives each response header.
	HeaderCallback func(key, value string)
	// DataCallback receives the body in order; offset is the position of data in the body.
	DataCallback func(data []byte, offset uint64)
	// CompletionCallback is invoked exactly once for an accepted request.
	CompletionCallback func(resp NetworkResponse)
)

// Transport sends requests asynchronously. Send either accepts the request and
// returns its id, or fails immediately with a transport signal and never
// invokes the callbacks.
type Transport interface {
	Send(req NetworkRequest, onHeader HeaderCallback, onData DataCallback, onComplete CompletionCallback) (RequestID, error)
	// Cancel asks the transport to abort id. Unknown or finished ids are ignored.
	Cancel(id RequestID)
}

// Invalidation announces cache keys that must no longer be served.
type Invalidation struct {
	Keys   []string `json:"keys"`
	Reason string   `json:"reason"`
}

// InvalidationPublisher fans out invalidations to other cache holders.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, inv Invalidation) error
}

// MessageSubscriber is a subscriber for incoming raw messages.
type MessageSubscriber interface {
	// Subscribe registers the handler; ack and redelivery are handled by the adapter.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

// CacheSnapshot iterates the live entries of a persistent cache. ttl is zero
// for entries without expiry.
type CacheSnapshot interface {
	LoadAll(ctx context.Context, fn func(key string, value []byte, ttl time.Duration) error) error
}
