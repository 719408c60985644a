package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the caller-visible classification of a failed operation.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindPreconditionFailed
	ErrorKindNotFound
	ErrorKindAccessDenied
	ErrorKindCancelled
	ErrorKindRequestTimeout
	ErrorKindServiceError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindPreconditionFailed:
		return "precondition_failed"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindAccessDenied:
		return "access_denied"
	case ErrorKindCancelled:
		return "cancelled"
	case ErrorKindRequestTimeout:
		return "request_timeout"
	case ErrorKindServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Status is the HTTP status when the failure
// came from a response, zero otherwise.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, e.Message)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a classified error without an HTTP status.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindUnknown
}

// Shared domain errors, matched by kind.
var (
	ErrPreconditionFailed = &Error{Kind: ErrorKindPreconditionFailed}
	ErrNotFound           = &Error{Kind: ErrorKindNotFound}
	ErrAccessDenied       = &Error{Kind: ErrorKindAccessDenied}
	ErrCancelled          = &Error{Kind: ErrorKindCancelled}
	ErrRequestTimeout     = &Error{Kind: ErrorKindRequestTimeout}
	ErrServiceError       = &Error{Kind: ErrorKindServiceError}
)

// Transport signals reported by Transport.Send or in NetworkResponse.Err.
var (
	ErrTransportCancelled = transportError("operation cancelled")
	ErrTransportTimeout   = transportError("operation timed out")
	ErrTransportOffline   = transportError("transport offline")
	ErrTransportIO        = transportError("io error")
)

type transportError string

func (e transportError) Error() string { return "transport: " + string(e) }
