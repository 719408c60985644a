package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/testutil"
)

const testURL = "https://example.test/resource"

func get(url string) domain.NetworkRequest {
	return domain.NetworkRequest{Method: http.MethodGet, URL: url}
}

func TestCall_Response(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Respond(testURL, http.StatusOK, `{"ok":true}`)

	resp, err := Call(cancellation.New(), tr, get(testURL), time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Empty(t, tr.Cancelled())
}

func TestCall_ErrorStatusIsReturnedUnclassified(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Respond(testURL, http.StatusForbidden, "nope")

	resp, err := Call(cancellation.New(), tr, get(testURL), time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestCall_Timeout(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Handle(testURL, testutil.Route{Hang: true})

	start := time.Now()
	_, err := Call(cancellation.New(), tr, get(testURL), 50*time.Millisecond)

	assert.ErrorIs(t, err, domain.ErrRequestTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []domain.RequestID{12}, tr.Cancelled())
}

func TestCall_CancelledWhileInFlight(t *testing.T) {
	tr := testutil.NewTransport()
	cc := cancellation.New()
	tr.Handle(testURL, testutil.Route{Hang: true, OnSend: func(domain.RequestID) { go cc.Cancel() }})

	_, err := Call(cc, tr, get(testURL), 5*time.Second)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, []domain.RequestID{12}, tr.Cancelled())
	assert.True(t, cc.IsCancelled())
}

func TestCall_CancelledBeforeSend(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Respond(testURL, http.StatusOK, "{}")
	cc := cancellation.New()
	cc.Cancel()

	_, err := Call(cc, tr, get(testURL), time.Second)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Empty(t, tr.Sent())
	assert.Empty(t, tr.Cancelled())
}

func TestCall_SendFailsImmediately(t *testing.T) {
	tests := []struct {
		name   string
		signal error
		want   error
	}{
		{"cancelled", domain.ErrTransportCancelled, domain.ErrCancelled},
		{"offline", domain.ErrTransportOffline, domain.ErrServiceError},
		{"timeout", domain.ErrTransportTimeout, domain.ErrRequestTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := testutil.NewTransport()
			tr.Handle(testURL, testutil.Route{SendErr: tc.signal})

			_, err := Call(cancellation.New(), tr, get(testURL), time.Second)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, tr.Cancelled())
		})
	}
}

func TestCall_CompletionSignal(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Handle(testURL, testutil.Route{Err: domain.ErrTransportIO})

	_, err := Call(cancellation.New(), tr, get(testURL), time.Second)
	assert.ErrorIs(t, err, domain.ErrServiceError)
	assert.Empty(t, tr.Cancelled())
}

func TestCall_ReleasesCanceller(t *testing.T) {
	tr := testutil.NewTransport()
	tr.Respond(testURL, http.StatusOK, "{}")
	cc := cancellation.New()

	_, err := Call(cc, tr, get(testURL), time.Second)
	require.NoError(t, err)

	// a later cancel must not reach the finished request
	cc.Cancel()
	assert.Empty(t, tr.Cancelled())
	assert.Equal(t, cancellation.StateCancelRequested, cc.State())
}

func TestSettings(t *testing.T) {
	assert.Error(t, Settings{}.Validate())
	assert.Error(t, Settings{Cache: testutil.NewCache()}.Validate())
	assert.NoError(t, Settings{Cache: testutil.NewCache(), Transport: testutil.NewTransport()}.Validate())

	s := Settings{}.WithDefaults()
	assert.Equal(t, DefaultRequestTimeout, s.RequestTimeout)
	assert.Equal(t, DefaultLookupURL, s.LookupURL)
	assert.NotNil(t, s.Metrics)
}
