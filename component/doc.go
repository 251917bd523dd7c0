// Package component defines the lifecycle interface shared by the service's
// infrastructure (database pool, tracer, HTTP server) and the Registry that
// starts them in order and stops them in reverse.
package component
