// Package domainerrors defines the error taxonomy shared by all modules.
// Errors carry a machine-readable code, an optional reason token surfaced
// verbatim to clients, and a human-readable message.
package domainerrors

import "errors"

// Code classifies an error for transport mapping and retry policy.
type Code string

const (
	// CodeValidation marks malformed input. Never retried.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a request missing required fields.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks a value that fails boundary parsing.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a missing resource.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a business-rule conflict with existing state.
	CodeConflict Code = "conflict"
	// CodeUnprocessable marks a well-formed request the rules refuse.
	CodeUnprocessable Code = "unprocessable"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller lacking the role.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable marks an external dependency failure. Retryable.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout marks a unit of work cut short by its deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal marks an unexpected fault. Details never leave the server.
	CodeInternal Code = "internal"
)

// Error is the domain error type. Reason is a stable token clients may match
// on; Message is for humans.
type Error struct {
	Code    Code
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// NewReason builds a domain error carrying a stable reason token.
func NewReason(code Code, reason, message string) error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err. Anything unclassified is internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf extracts the reason token from err, empty when absent.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
