package errors

import (
	"fmt"
	"net/http"
)

// ServiceUnavailable reports a dependency that is temporarily down.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

// ConnectionFailed reports a failed connection to a dependency.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s.", service),
		http.StatusServiceUnavailable).WithDetail("service", service)
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.",
		http.StatusGatewayTimeout).WithDetail("operation", operation)
}

// NotFound reports a missing resource. id may be empty.
func NotFound(resource, id string) *AppError {
	err := New(ErrCodeNotFound, fmt.Sprintf("%s not found", titleCase(resource)), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		err.WithDetail("id", id)
	}
	return err
}

// AlreadyExists reports a uniqueness conflict.
func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists,
		fmt.Sprintf("A %s with these details already exists.", resource),
		http.StatusConflict).WithDetail("resource", resource)
}

// Conflict reports a request that clashes with current state.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// InvalidInput reports a rejected field value.
func InvalidInput(field, reason string) *AppError {
	err := New(ErrCodeInvalidInput, fmt.Sprintf("Invalid input: %s", reason), http.StatusBadRequest)
	if field != "" {
		err.WithDetail("field", field)
	}
	return err
}

// Validation reports a request body that failed validation.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// MissingField reports an absent required field.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field),
		http.StatusBadRequest).WithDetail("field", field)
}

// InvalidFormat reports a field whose value does not parse.
func InvalidFormat(field, expectedFormat string) *AppError {
	return New(ErrCodeInvalidFormat,
		fmt.Sprintf("Invalid format for %s. Expected: %s", field, expectedFormat),
		http.StatusBadRequest).WithDetails(map[string]any{"field": field, "expected_format": expectedFormat})
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).
		WithCause(cause)
}

// DatabaseError wraps a store failure that is not a known condition.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.",
		http.StatusInternalServerError).WithCause(cause)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
