package flodesk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a downstream failure.
type ErrorKind int

const (
	// KindNotFound: Flodesk returned 404 for the requested resource.
	KindNotFound ErrorKind = iota
	// KindInvalidCredential: Flodesk rejected the API key (401).
	KindInvalidCredential
	// KindUpstream: any other non-2xx Flodesk response.
	KindUpstream
	// KindUnavailable: network failure or timeout, no response received.
	KindUnavailable
)

// Error is a classified Flodesk failure. Status and Body preserve the
// original response for diagnostics; the credential is never attached.
type Error struct {
	Kind       ErrorKind
	Resource   string
	Identifier string
	Status     int
	Body       string
	cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		if e.Resource != "" {
			return fmt.Sprintf("%s %q not found", e.Resource, e.Identifier)
		}
		return "resource not found"
	case KindInvalidCredential:
		return "invalid api key"
	case KindUpstream:
		return fmt.Sprintf("flodesk returned status %d", e.Status)
	case KindUnavailable:
		if e.cause != nil {
			return "flodesk unreachable: " + e.cause.Error()
		}
		return "flodesk unreachable"
	}
	return "flodesk error"
}

func (e *Error) Unwrap() error { return e.cause }

func notFoundError(status int, body string) *Error {
	return &Error{Kind: KindNotFound, Status: status, Body: body}
}

func invalidCredentialError(status int, body string) *Error {
	return &Error{Kind: KindInvalidCredential, Status: status, Body: body}
}

func upstreamError(status int, body string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Body: body}
}

func unavailableError(cause error) *Error {
	return &Error{Kind: KindUnavailable, cause: cause}
}

// describeNotFound annotates a not-found error with the resource and
// identifier being looked up, so callers see "subscriber \"x@y.com\" not
// found" instead of a bare 404.
func describeNotFound(err error, resource, identifier string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindNotFound {
		fe.Resource = resource
		fe.Identifier = identifier
	}
	return err
}
