package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Ticker source errors
	ErrTickerSource = &Error{Code: "TICKER_SOURCE", Message: "ticker list unavailable"}

	// Credential errors
	ErrMissingCredentials = &Error{Code: "MISSING_CREDENTIALS", Message: "client id or access token missing"}
	ErrRefreshFailed      = &Error{Code: "REFRESH_FAILED", Message: "access token refresh failed"}
	ErrAuthPermanent      = &Error{Code: "AUTH_PERMANENT", Message: "authentication failed with no refresh path"}

	// Sink errors
	ErrSinkWrite = &Error{Code: "SINK_WRITE", Message: "object sink write failed"}

	// Run errors
	ErrRunFailed = &Error{Code: "RUN_FAILED", Message: "ingest run had failed symbols"}
)
