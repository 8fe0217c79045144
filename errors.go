package consoleauth

import (
	"errors"
	"strconv"
)

var (
	// ErrTransport is returned when the request never produced an HTTP response.
	ErrTransport = errors.New("transport error")
	// ErrHTTPStatus is returned for any non-401 response with status >= 400.
	ErrHTTPStatus = errors.New("http error status")
	// ErrUnauthorized is returned when a replayed request is rejected with 401 again.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired is returned when a 401 could not be recovered because the
	// refresh operation failed. The token has been cleared when this is returned.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshFailed is returned by Refresh and Restore when no new token was obtained.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrLoginFailed is returned when the login endpoint rejected the credentials.
	ErrLoginFailed = errors.New("login failed")
	// ErrInvalidRequest is returned for requests that cannot be built.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClientNotReady is returned by methods called on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
)

// RequestError describes a failed Do call.
//
// Status is 0 when no response was received. Err is one of the package
// sentinels; Cause carries the underlying error when there is one. Both are
// reachable through errors.Is.
type RequestError struct {
	Method   string
	Path     string
	Status   int
	Message  string
	Err      error
	Cause    error
	Response *Response
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	prefix := e.Method + " " + e.Path
	if e.Status != 0 {
		prefix += " (" + strconv.Itoa(e.Status) + ")"
	}
	return prefix + ": " + msg
}

func (e *RequestError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
