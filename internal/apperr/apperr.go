package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds
var (
	ErrStorage    = errors.New("storage error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error is an application error carrying an HTTP status for the handler
// layer. The queue service never retries or swallows; every failure
// surfaces to the caller as one of the sentinel kinds above.
type Error struct {
	Err        error  `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Storage wraps a persistence-layer failure
func Storage(err error, op string) *Error {
	return &Error{
		Err:        fmt.Errorf("%w: %v", ErrStorage, err),
		Message:    fmt.Sprintf("failed to %s", op),
		Code:       "STORAGE_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Validation creates a validation error for a caller-supplied value
func Validation(message string) *Error {
	return &Error{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NotFound creates a not found error for a resource within the caller's scope
func NotFound(resource, id string) *Error {
	return &Error{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s %s not found", resource, id),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a conflict error for an illegal state transition
func Conflict(message string) *Error {
	return &Error{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}
