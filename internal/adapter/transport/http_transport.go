// Package transport implements domain.Transport on top of net/http.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/example/dataservice-read/internal/domain"
)

const readChunk = 32 << 10

// HTTPTransport runs every accepted request on its own goroutine and reports
// the outcome through the callbacks. Cancel aborts a request by id; ids come
// from a monotonic counter and are never reused.
type HTTPTransport struct {
	client    *http.Client
	userAgent string

	nextID   atomic.Uint64
	inflight *xsync.Map[domain.RequestID, context.CancelFunc]
	wg       sync.WaitGroup
	closed   atomic.Bool
}

var _ domain.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport using client, or http.DefaultClient
// when client is nil. The request timeout is enforced by the caller, so
// client.Timeout should normally be zero.
func NewHTTPTransport(client *http.Client, userAgent string) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{
		client:    client,
		userAgent: userAgent,
		inflight:  xsync.NewMap[domain.RequestID, context.CancelFunc](),
	}
}

func (t *HTTPTransport) Send(req domain.NetworkRequest, onHeader domain.HeaderCallback, onData domain.DataCallback, onComplete domain.CompletionCallback) (domain.RequestID, error) {
	if t.closed.Load() {
		return 0, domain.ErrTransportOffline
	}
	ctx, cancel := context.WithCancel(context.Background())
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		cancel()
		return 0, errors.Join(domain.ErrTransportIO, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	id := domain.RequestID(t.nextID.Add(1))
	t.inflight.Store(id, cancel)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.release(id)
		onComplete(t.do(ctx, id, httpReq, onHeader, onData))
	}()
	return id, nil
}

func (t *HTTPTransport) do(ctx context.Context, id domain.RequestID, req *http.Request, onHeader domain.HeaderCallback, onData domain.DataCallback) domain.NetworkResponse {
	resp, err := t.client.Do(req)
	if err != nil {
		return domain.NetworkResponse{RequestID: id, Err: signalOf(ctx, err)}
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			if onHeader != nil {
				onHeader(k, v)
			}
		}
	}

	buf := make([]byte, readChunk)
	var offset uint64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 && onData != nil {
			onData(buf[:n], offset)
		}
		offset += uint64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.NetworkResponse{RequestID: id, Status: resp.StatusCode, Err: signalOf(ctx, err)}
		}
	}
	return domain.NetworkResponse{RequestID: id, Status: resp.StatusCode}
}

// signalOf turns an http client error into a transport signal.
func signalOf(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return domain.ErrTransportCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(domain.ErrTransportTimeout, err)
	}
	return errors.Join(domain.ErrTransportIO, err)
}

func (t *HTTPTransport) release(id domain.RequestID) {
	if cancel, ok := t.inflight.LoadAndDelete(id); ok {
		cancel()
	}
}

// Cancel aborts id if it is still in flight.
func (t *HTTPTransport) Cancel(id domain.RequestID) {
	t.release(id)
}

// InFlight returns the number of requests not completed yet.
func (t *HTTPTransport) InFlight() int {
	return t.inflight.Size()
}

// Close rejects new requests, cancels the pending ones and waits for their
// callbacks to return.
func (t *HTTPTransport) Close() {
	t.closed.Store(true)
	t.inflight.Range(func(id domain.RequestID, _ context.CancelFunc) bool {
		t.release(id)
		return true
	})
	t.wg.Wait()
}
