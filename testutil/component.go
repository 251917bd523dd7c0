package testutil

import (
	"context"

	"github.com/kbukum/gotemplate/component"
)

// TestComponent is a component.Component that tests can return to a clean
// state between cases.
type TestComponent interface {
	component.Component

	// Reset removes state written since Start.
	Reset(ctx context.Context) error
}
