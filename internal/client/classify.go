package client

import (
	"errors"
	"net/http"

	"github.com/example/dataservice-read/internal/domain"
)

// Classify maps an HTTP status or a transport signal to the caller-visible
// error. It returns nil for a 2xx status without a signal. timerFired tells a
// timer-driven abort apart from a caller-driven one, since the transport
// reports both as ErrTransportCancelled.
func Classify(status int, signal error, timerFired bool, body []byte) error {
	if signal != nil {
		switch {
		case errors.Is(signal, domain.ErrTransportCancelled):
			if timerFired {
				return domain.NewError(domain.ErrorKindRequestTimeout, "no response within the request timeout")
			}
			return domain.NewError(domain.ErrorKindCancelled, "operation cancelled")
		case errors.Is(signal, domain.ErrTransportTimeout):
			return domain.NewError(domain.ErrorKindRequestTimeout, "%v", signal)
		default:
			return domain.NewError(domain.ErrorKindServiceError, "%v", signal)
		}
	}

	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.Error{Kind: domain.ErrorKindAccessDenied, Status: status, Message: string(body)}
	case status == http.StatusNotFound:
		return &domain.Error{Kind: domain.ErrorKindNotFound, Status: status, Message: string(body)}
	default:
		return &domain.Error{Kind: domain.ErrorKindServiceError, Status: status, Message: string(body)}
	}
}
