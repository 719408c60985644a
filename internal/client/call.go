package client

import (
	"bytes"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/domain"
)

// Response is a fully received HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

type outcome struct {
	resp     Response
	signal   error
	timedOut bool
}

// future is resolved exactly once; later resolutions are no-ops. claim and
// deliver are split so the winner can abort the transport request before the
// waiting caller wakes up.
type future struct {
	claimed atomic.Bool
	ch      chan outcome
}

func newFuture() *future {
	return &future{ch: make(chan outcome, 1)}
}

func (f *future) claim() bool {
	return f.claimed.CompareAndSwap(false, true)
}

func (f *future) deliver(o outcome) {
	f.ch <- o
}

// resolve reports whether this call was the one that resolved f.
func (f *future) resolve(o outcome) bool {
	if !f.claim() {
		return false
	}
	f.deliver(o)
	return true
}

// Call sends req through t and blocks until the completion callback fires,
// the timeout elapses or cc is cancelled, whichever comes first. The transport
// is asked to abort the request only when the timer or cc wins. A response of
// any HTTP status is returned as is; cancellation, timeout and transport
// failures are returned as classified errors.
func Call(cc *cancellation.Context, t domain.Transport, req domain.NetworkRequest, timeout time.Duration) (Response, error) {
	f := newFuture()

	var (
		mu     sync.Mutex
		header = make(http.Header)
		body   bytes.Buffer
	)
	onHeader := func(key, value string) {
		mu.Lock()
		header.Add(key, value)
		mu.Unlock()
	}
	onData := func(data []byte, _ uint64) {
		mu.Lock()
		body.Write(data)
		mu.Unlock()
	}
	onComplete := func(r domain.NetworkResponse) {
		mu.Lock()
		resp := Response{Status: r.Status, Header: header.Clone(), Body: bytes.Clone(body.Bytes())}
		mu.Unlock()
		f.resolve(outcome{resp: resp, signal: r.Err})
	}

	var guard *cancellation.TimeoutGuard
	reg, _ := cc.ExecuteOrCancelled(func() func() {
		id, err := t.Send(req, onHeader, onData, onComplete)
		if err != nil {
			f.resolve(outcome{signal: err})
			return nil
		}
		abort := func() { t.Cancel(id) }
		guard = cancellation.StartTimeoutGuard(timeout, func() {
			if f.claim() {
				abort()
				f.deliver(outcome{signal: domain.ErrTransportCancelled, timedOut: true})
			}
		})
		return func() {
			if f.claim() {
				abort()
				f.deliver(outcome{signal: domain.ErrTransportCancelled})
			}
		}
	}, func() {
		f.resolve(outcome{signal: domain.ErrTransportCancelled})
	})

	o := <-f.ch
	timerFired := o.timedOut
	if guard != nil {
		guard.Stop()
		timerFired = timerFired || guard.Fired()
	}
	reg.Release()

	if o.signal != nil {
		return Response{}, Classify(0, o.signal, timerFired, nil)
	}
	return o.resp, nil
}
