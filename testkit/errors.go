package testkit

import (
	"fmt"
	"strings"
)

// ConnectionError means the store could not be reached, or the connection
// broke while a test was using it.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("testkit: %s: store unreachable: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError rejects an override before anything is written.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
	Value  any
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("testkit: %s.%s %s (got %#v)", e.Entity, e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConstraintViolation wraps the driver error of a failed insert. Unwrap
// returns that error unchanged, so database.IsDuplicateError and friends
// work on it.
type ConstraintViolation struct {
	Entity string
	Err    error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("testkit: insert %s: %v", e.Entity, e.Err)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// SchemaError reports a definition graph the factory cannot satisfy, such
// as a cycle of required foreign keys.
type SchemaError struct {
	Entity string
	// Cycle is the chain of definitions that leads back to its start.
	Cycle  []string
	Reason string
}

func (e *SchemaError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("testkit: %s: required foreign keys form a cycle: %s",
			e.Entity, strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("testkit: %s: %s", e.Entity, e.Reason)
}

func (e *SchemaError) Unwrap() error { return nil }

// TeardownError is returned when the rollback at the end of a test fails.
// Test holds the test's own error, if any; it is reported first.
type TeardownError struct {
	Test     error
	Rollback error
}

func (e *TeardownError) Error() string {
	if e.Test == nil {
		return fmt.Sprintf("testkit: rollback failed: %v", e.Rollback)
	}
	return fmt.Sprintf("%v; testkit: rollback failed: %v", e.Test, e.Rollback)
}

func (e *TeardownError) Unwrap() []error {
	if e.Test == nil {
		return []error{e.Rollback}
	}
	return []error{e.Test, e.Rollback}
}
