package testutil

import (
	"net/http"
	"sync"

	"github.com/example/dataservice-read/internal/domain"
)

// Route scripts the transport's behaviour for one URL.
type Route struct {
	// Status and Body are delivered asynchronously, as a real transport would.
	Status int
	Body   string
	// Err is delivered as the completion signal instead of a status.
	Err error
	// SendErr makes Send fail immediately; no callback fires.
	SendErr error
	// Hang accepts the request and never calls back.
	Hang bool
	// OnSend runs inside Send after the request has been accepted.
	OnSend func(id domain.RequestID)
}

// Transport is a scripted domain.Transport. Requests to URLs without a route
// fail immediately with ErrTransportIO and are listed by Unexpected.
type Transport struct {
	mu         sync.Mutex
	routes     map[string]Route
	nextID     domain.RequestID
	sent       []string
	cancelled  []domain.RequestID
	unexpected []string
	wg         sync.WaitGroup
}

var _ domain.Transport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{routes: make(map[string]Route), nextID: 11}
}

// Handle installs or replaces the route for url.
func (t *Transport) Handle(url string, r Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[url] = r
}

// Respond is a shortcut for a plain status/body route.
func (t *Transport) Respond(url string, status int, body string) {
	t.Handle(url, Route{Status: status, Body: body})
}

func (t *Transport) Send(req domain.NetworkRequest, onHeader domain.HeaderCallback, onData domain.DataCallback, onComplete domain.CompletionCallback) (domain.RequestID, error) {
	t.mu.Lock()
	t.sent = append(t.sent, req.URL)
	r, ok := t.routes[req.URL]
	if !ok {
		t.unexpected = append(t.unexpected, req.URL)
		t.mu.Unlock()
		return 0, domain.ErrTransportIO
	}
	if r.SendErr != nil {
		t.mu.Unlock()
		return 0, r.SendErr
	}
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	if r.OnSend != nil {
		r.OnSend(id)
	}
	if r.Hang {
		return id, nil
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if r.Err != nil {
			onComplete(domain.NetworkResponse{RequestID: id, Err: r.Err})
			return
		}
		if onHeader != nil {
			onHeader("Content-Type", "application/json")
		}
		if onData != nil && r.Body != "" {
			onData([]byte(r.Body), 0)
		}
		status := r.Status
		if status == 0 {
			status = http.StatusOK
		}
		onComplete(domain.NetworkResponse{RequestID: id, Status: status})
	}()
	return id, nil
}

func (t *Transport) Cancel(id domain.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = append(t.cancelled, id)
}

// Wait blocks until every scripted response has been delivered.
func (t *Transport) Wait() {
	t.wg.Wait()
}

// Sent returns the URLs passed to Send, in order.
func (t *Transport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// SendCount returns how many times url was sent.
func (t *Transport) SendCount(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, u := range t.sent {
		if u == url {
			n++
		}
	}
	return n
}

// Cancelled returns the ids passed to Cancel, in order.
func (t *Transport) Cancelled() []domain.RequestID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.RequestID(nil), t.cancelled...)
}

// Unexpected returns URLs sent without a route.
func (t *Transport) Unexpected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.unexpected...)
}
