package errors

import (
	stderrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the JSON envelope returned to clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the client-visible error fields.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to its JSON envelope.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// AsAppError extracts the AppError wrapped by err.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From converts any error into an AppError. Validator failures become
// INVALID_INPUT with one detail entry per field; anything unknown is Internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		return FromValidation(verrs)
	}
	return Internal(err)
}

// FromValidation maps validator field errors onto an AppError.
func FromValidation(verrs validator.ValidationErrors) *AppError {
	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = fe.Tag()
		msgs = append(msgs, name+" failed "+fe.Tag())
	}
	return Validation("Validation failed: " + strings.Join(msgs, ", ")).
		WithDetail("fields", fields).
		WithCause(verrs)
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if ns == "" {
		ns = fe.Field()
	}
	return ns
}
