package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/dataservice-read/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		signal     error
		timerFired bool
		want       domain.ErrorKind
	}{
		{"ok", 200, nil, false, domain.ErrorKindUnknown},
		{"no content", 204, nil, false, domain.ErrorKindUnknown},
		{"unauthorized", 401, nil, false, domain.ErrorKindAccessDenied},
		{"forbidden", 403, nil, false, domain.ErrorKindAccessDenied},
		{"not found", 404, nil, false, domain.ErrorKindNotFound},
		{"bad request", 400, nil, false, domain.ErrorKindServiceError},
		{"server error", 500, nil, false, domain.ErrorKindServiceError},
		{"redirect", 302, nil, false, domain.ErrorKindServiceError},
		{"cancelled by caller", 0, domain.ErrTransportCancelled, false, domain.ErrorKindCancelled},
		{"cancelled by timer", 0, domain.ErrTransportCancelled, true, domain.ErrorKindRequestTimeout},
		{"transport timeout", 0, domain.ErrTransportTimeout, false, domain.ErrorKindRequestTimeout},
		{"offline", 0, domain.ErrTransportOffline, false, domain.ErrorKindServiceError},
		{"io", 0, domain.ErrTransportIO, false, domain.ErrorKindServiceError},
		{"signal wins over status", 200, domain.ErrTransportIO, false, domain.ErrorKindServiceError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify(tc.status, tc.signal, tc.timerFired, []byte("body"))
			if tc.want == domain.ErrorKindUnknown {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.want, domain.KindOf(err))
		})
	}
}

func TestClassify_KeepsStatusAndBody(t *testing.T) {
	err := Classify(403, nil, false, []byte("denied"))

	var e *domain.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 403, e.Status)
	assert.Equal(t, "denied", e.Message)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}
