package lookup

import (
	"errors"
	"fmt"
)

// Code classifies a failed lookup for callers.
type Code string

const (
	CodeNoIdentifier        Code = "NO_IDENTIFIER"
	CodeInvalidFormat       Code = "INVALID_FORMAT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
)

// Error is the only error type Lookup returns. Message is safe to show to
// clients; Err carries the internal cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ClientError reports whether the failure was caused by the request rather
// than the upstream registry.
func (e *Error) ClientError() bool {
	return e.Code != CodeUpstreamUnavailable
}

// CodeOf returns the Code carried by err, or "" if err is not a lookup
// error.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func newError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}
