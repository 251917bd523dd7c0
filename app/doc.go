// Package app assembles the music service: its configuration, the HTTP
// handler with middleware and routes, and the components the binary runs.
package app
