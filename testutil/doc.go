// Package testutil manages infrastructure shared by a package's tests.
//
// A TestComponent is a component.Component with a Reset method. Single
// tests bind one with T(t).Setup; whole packages start them once from
// TestMain through a Manager:
//
//	var store = dbtest.NewStore()
//
//	func TestMain(m *testing.M) {
//	    mgr := testutil.NewManager(context.Background())
//	    mgr.Add(store)
//	    mgr.Run(m)
//	}
package testutil
