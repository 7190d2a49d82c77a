package grantsx

import (
	"github.com/cockroachdb/errors"
)

// ErrorCode represents specific error codes for grant operations.
type ErrorCode int

const (
	// ErrCodeEmptyQuery is returned when an empty search is submitted.
	ErrCodeEmptyQuery ErrorCode = iota + 1000

	// ErrCodeEmptyFilter is returned when a filter edit has no non-empty field.
	ErrCodeEmptyFilter

	// ErrCodeInvalidFilter is returned when a filter edit is contradictory.
	ErrCodeInvalidFilter

	// ErrCodeInvalidPageSize is returned for a page size outside the allowed set.
	ErrCodeInvalidPageSize

	// ErrCodeLoadFailed is returned when a remote call failed or reported non-success.
	ErrCodeLoadFailed

	// ErrCodeTimeout is returned when an operation times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when an operation is canceled.
	ErrCodeCanceled

	// ErrCodeBackendUnavailable is returned when the grants backend is unavailable.
	ErrCodeBackendUnavailable
)

// String returns the human-readable string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeEmptyQuery:
		return "empty query"
	case ErrCodeEmptyFilter:
		return "empty filter"
	case ErrCodeInvalidFilter:
		return "invalid filter"
	case ErrCodeInvalidPageSize:
		return "invalid page size"
	case ErrCodeLoadFailed:
		return "load failed"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown error"
	}
}

func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

// Validation errors are raised at the input boundary and never reach the controller.
var (
	// ErrEmptyQuery is returned when a search is submitted with blank text.
	ErrEmptyQuery = newErrorWithCode(ErrCodeEmptyQuery, "grantsx: empty query")

	// ErrEmptyFilter is returned when every filter field is empty.
	ErrEmptyFilter = newErrorWithCode(ErrCodeEmptyFilter, "grantsx: at least one filter field is required")

	// ErrInvalidFilter is returned when a filter edit cannot match anything.
	ErrInvalidFilter = newErrorWithCode(ErrCodeInvalidFilter, "grantsx: invalid filter")

	// ErrInvalidPageSize is returned for page sizes other than 10, 25, 50 or 100.
	ErrInvalidPageSize = newErrorWithCode(ErrCodeInvalidPageSize, "grantsx: invalid page size")
)

// Load and transport errors.
var (
	// ErrLoadFailed matches every *LoadError.
	ErrLoadFailed = newErrorWithCode(ErrCodeLoadFailed, "grantsx: load failed")

	// ErrTimeout is returned when a remote call times out.
	ErrTimeout = newErrorWithCode(ErrCodeTimeout, "grantsx: operation timed out")

	// ErrCanceled is returned when a remote call is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "grantsx: operation canceled")

	// ErrBackendUnavailable is returned when the backend cannot be reached.
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "grantsx: backend unavailable")
)

// LoadError is the visible error produced by a failed page fetch.
// It carries the params of the failed call so callers can retry them.
type LoadError struct {
	// Message is the text shown to the user.
	Message string
	// Params are the fetch parameters of the failed call.
	Params Params

	cause error
}

// NewLoadError wraps cause as a LoadError for params.
// An existing *LoadError in the chain is returned unchanged.
func NewLoadError(params Params, cause error) *LoadError {
	var le *LoadError
	if errors.As(cause, &le) {
		return le
	}
	msg := "failed to load grants"
	if cause != nil {
		msg = cause.Error()
	}
	return &LoadError{Message: msg, Params: params, cause: cause}
}

func (e *LoadError) Error() string {
	return "grantsx: load failed: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.cause
}

// Is reports whether target is ErrLoadFailed.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}
