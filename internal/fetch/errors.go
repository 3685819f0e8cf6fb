package fetch

import "errors"

var (
	// ErrClientRejected matches 4xx responses.
	ErrClientRejected = errors.New("fetch: request rejected")
	// ErrServerOrTransport matches 5xx (and other non-success) responses
	// and requests that got no response at all.
	ErrServerOrTransport = errors.New("fetch: server or transport failure")
	// ErrNoResponseBody is returned when a response that must be read has
	// no body.
	ErrNoResponseBody = errors.New("no response body")
	// ErrResponseTooLarge is wrapped in a TransportError when a body
	// exceeds MaxResponseSize.
	ErrResponseTooLarge = errors.New("response body too large")
)

// ClientRejectedError carries the body of a 4xx response verbatim so the
// caller can inspect validation messages.
type ClientRejectedError struct {
	StatusCode int
	Detail     string
}

func (e *ClientRejectedError) Error() string { return e.Detail }

func (e *ClientRejectedError) Is(target error) bool { return target == ErrClientRejected }

// ServerError carries the status message of a non-success, non-4xx
// response.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string { return e.Detail }

func (e *ServerError) Is(target error) bool { return target == ErrServerOrTransport }

// TransportError wraps a failure to get any response. Its message is the
// transport's own.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrServerOrTransport }
