// Package bootstrap runs a service: it validates the config, starts the
// registered components in order, runs lifecycle hooks and shuts
// everything down on a signal.
package bootstrap
