package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tracker error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrMalformedDate     ErrorCode = "MALFORMED_DATE"      // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"      // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrMismatchedOwner   ErrorCode = "MISMATCHED_OWNER"    // 422
	ErrValidation        ErrorCode = "VALIDATION"          // 422
	ErrCancelled         ErrorCode = "CANCELLED"           // 499
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"   // 503
)

// TrackerError represents a structured error with code, status, and details.
type TrackerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *TrackerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TrackerError {
	return &TrackerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMalformedDate creates a 400 error for a date field that does not parse.
func NewMalformedDate(value string) *TrackerError {
	return &TrackerError{
		Code:    ErrMalformedDate,
		Status:  400,
		Message: fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", value),
		Details: map[string]any{"value": value},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *TrackerError {
	return &TrackerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *TrackerError {
	return &TrackerError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNameAlreadyExists creates a 409 error when a medication name is taken.
func NewNameAlreadyExists(name string) *TrackerError {
	return &TrackerError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("medication %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewMismatchedOwner creates a 422 error when a snapshot belongs to another account.
func NewMismatchedOwner(snapshotEmail string) *TrackerError {
	return &TrackerError{
		Code:    ErrMismatchedOwner,
		Status:  422,
		Message: fmt.Sprintf("this export file does not match your account email (%s)", snapshotEmail),
		Details: map[string]any{"user_email": snapshotEmail},
	}
}

// NewValidation creates a 422 error for a record that violates a field constraint.
func NewValidation(msg string, fields map[string]any) *TrackerError {
	return &TrackerError{
		Code:    ErrValidation,
		Status:  422,
		Message: msg,
		Details: fields,
	}
}

// NewCancelled creates a 499 error when the caller's context is done.
func NewCancelled(op string) *TrackerError {
	return &TrackerError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TrackerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TrackerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewStoreUnavailable creates a 503 error when the store cannot begin or commit work.
// Nothing was committed, so the whole operation is safe to retry.
func NewStoreUnavailable(err error) *TrackerError {
	msg := "store unavailable"
	if err != nil {
		msg = fmt.Sprintf("store unavailable: %v", err)
	}
	return &TrackerError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a TrackerError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// As extracts a TrackerError from err, wrapping anything else as INTERNAL.
func As(err error) *TrackerError {
	var tErr *TrackerError
	if stderrors.As(err, &tErr) {
		return tErr
	}
	return NewInternal(err)
}
