// Package validation validates request input.
//
// Request DTOs carry `validate` tags checked by gin through GinValidator;
// other structs are checked with Validate. Query parameters, which do not
// bind to structs here, are checked with the chained Validator:
//
//	v := validation.New()
//	skip := v.Int("skip", c.Query("skip"), 0)
//	v.Min("skip", skip, 0)
//	if err := v.Validate(); err != nil {
//	    return err
//	}
package validation
