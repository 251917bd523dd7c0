// Package database opens and manages the service's gorm pool.
//
// The driver follows the DSN scheme: postgres:// uses the pgx-backed
// Postgres dialector, sqlite:// and sqlite::memory: use SQLite with foreign
// keys enforced. Open retries with backoff, routes gorm's statement log
// through the service logger and installs plugins such as QueryCounter.
//
// Errors from the store are classified with IsDuplicateError,
// IsForeignKeyError and friends, and converted for HTTP handlers with
// FromDatabase.
//
// BaseModel carries the server-assigned columns (id, created_at,
// updated_at) every entity embeds.
package database
