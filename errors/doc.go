// Package errors defines AppError, the error type every HTTP handler in the
// service returns, together with its code table, HTTP status mapping and the
// JSON envelope written to clients.
//
//	if band == nil {
//	    return errors.NotFound("band", id)
//	}
//
// Lower layers wrap with fmt.Errorf("...: %w", err); handlers convert the
// result with From before responding.
package errors
