// Package server runs the HTTP API over HTTP/1.1 and h2c and holds the
// helpers handlers use to write responses.
//
// Middleware lives in server/middleware (recovery, request id, CORS, body
// size, request logging, Prometheus metrics and the per-request
// transaction). Operational endpoints live in server/endpoint.
package server
