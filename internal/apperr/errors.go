package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP status mapping.
type Code string

const (
	// Validation errors: recoverable by the caller fixing their input.
	ErrCodeValidation Code = "VALIDATION"

	// State errors: the aggregate is in a state that forbids the operation.
	ErrCodeDayClosed           Code = "DAY_CLOSED"
	ErrCodeEarlierDayOpen      Code = "EARLIER_DAY_OPEN"
	ErrCodeAlreadyFinalized    Code = "ALREADY_FINALIZED"
	ErrCodeExceedsBalance      Code = "EXCEEDS_BALANCE"
	ErrCodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// Referential errors: stale or wrong references from the caller.
	ErrCodeUnknownReference Code = "UNKNOWN_REFERENCE"
	ErrCodeDuplicateAccount Code = "DUPLICATE_ACCOUNT"

	ErrCodeEmptyRange Code = "EMPTY_RANGE"
	ErrCodeNotFound   Code = "NOT_FOUND"
	ErrCodeConflict   Code = "CONFLICT"
	ErrCodeInternal   Code = "INTERNAL"
)

// Error is the single error type crossing service boundaries. Validation
// failures carry a field→reason map; everything else carries a code and
// message. Infrastructure causes are wrapped and reachable via Unwrap.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets callers match by code: errors.Is(err, apperr.New(code, "")) style
// comparisons work, as do the IsCode/CodeOf helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// InvalidInput creates a single-field validation error.
func InvalidInput(field, reason string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s: %s", field, reason),
		Fields:  map[string]string{field: reason},
	}
}

// Validation creates a validation error from a field→reason map.
func Validation(fields map[string]string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// CodeOf returns the code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// FieldsOf returns the field→reason map of a validation error, or nil.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// HTTPStatus maps an error code to an HTTP status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeDayClosed, ErrCodeEarlierDayOpen, ErrCodeAlreadyFinalized,
		ErrCodeExceedsBalance, ErrCodeInsufficientBalance, ErrCodeConflict,
		ErrCodeDuplicateAccount:
		return http.StatusConflict
	case ErrCodeUnknownReference, ErrCodeNotFound, ErrCodeEmptyRange:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
