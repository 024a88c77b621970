package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error codes. Clients switch on these, never on
// messages or HTTP status.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidInput           = "INVALID_INPUT"
	CodePayInPendingExists     = "PAYIN_PENDING_EXISTS"
	CodeAmountExceedsAvailable = "AMOUNT_EXCEEDS_AVAILABLE"
	CodeInvalidState           = "INVALID_STATE"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError is a custom error type for application errors
type AppError struct {
	Code       string
	Message    string
	StatusCode int // Same rule as HTTP status codes
	Err        error
	Details    map[string]interface{}
}

// Error returns a string representation of the error
func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is implements the errors.Is interface
func (e AppError) Is(target error) bool {
	if target, ok := target.(AppError); ok {
		return target.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error
func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e AppError) WithDetails(details map[string]interface{}) AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value interface{}) AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) AppError {
	return AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string, err error) AppError {
	return AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewPayInPendingExistsError signals that the house already has a pay-in in
// a blocking status. The existing submission is carried in the details so
// the caller can point the user at it.
func NewPayInPendingExistsError(existingPayInID, existingStatus string) AppError {
	return AppError{
		Code:       CodePayInPendingExists,
		Message:    "house already has an open pay-in submission",
		StatusCode: http.StatusConflict,
		Details: map[string]interface{}{
			"existingPayinId": existingPayInID,
			"existingStatus":  existingStatus,
		},
	}
}

// NewAmountExceedsAvailableError reports an allocation amount larger than a
// freshly read balance. Pre-validation failures are client errors.
func NewAmountExceedsAvailableError(message string) AppError {
	return AppError{
		Code:       CodeAmountExceedsAvailable,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewAmountExceedsAvailableConflict reports the same violation caught by a
// storage condition after a concurrent change; the caller should re-read and
// retry, hence 409 rather than 400.
func NewAmountExceedsAvailableConflict(message string) AppError {
	return AppError{
		Code:       CodeAmountExceedsAvailable,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInvalidStateError reports an operation applied in a status that does
// not permit it, e.g. accepting an already-accepted pay-in.
func NewInvalidStateError(message, currentStatus string) AppError {
	return AppError{
		Code:       CodeInvalidState,
		Message:    message,
		StatusCode: http.StatusConflict,
		Details: map[string]interface{}{
			"currentStatus": currentStatus,
		},
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) AppError {
	return AppError{
		Code:       CodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) AppError {
	return AppError{
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) AppError {
	return AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
