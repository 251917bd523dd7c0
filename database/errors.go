package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/gotemplate/errors"
)

// Postgres SQLSTATE codes for integrity violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgIntegrityClass      = "23"
)

// IsConnectionError reports whether err means the store could not be
// reached or the connection broke.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception
		return strings.HasPrefix(pgErr.Code, "08")
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrCantOpen || sqliteErr.Code == sqlite3.ErrNotADB
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"bad connection",
		"sql: database is closed",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsRetryableError reports whether retrying the operation may succeed.
func IsRetryableError(err error) bool {
	if IsConnectionError(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsNotFoundError reports a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports a unique or primary key violation.
func IsDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if code, ok := pgCode(err); ok {
		return code == pgUniqueViolation
	}
	if ext, ok := sqliteExtended(err); ok {
		return ext == sqlite3.ErrConstraintUnique || ext == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyError reports a foreign key violation.
func IsForeignKeyError(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	if code, ok := pgCode(err); ok {
		return code == pgForeignKeyViolation
	}
	if ext, ok := sqliteExtended(err); ok {
		return ext == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// IsNotNullError reports a NOT NULL violation.
func IsNotNullError(err error) bool {
	if code, ok := pgCode(err); ok {
		return code == pgNotNullViolation
	}
	if ext, ok := sqliteExtended(err); ok {
		return ext == sqlite3.ErrConstraintNotNull
	}
	return false
}

// IsConstraintError reports any integrity constraint violation.
func IsConstraintError(err error) bool {
	if IsDuplicateError(err) || IsForeignKeyError(err) {
		return true
	}
	if code, ok := pgCode(err); ok {
		return strings.HasPrefix(code, pgIntegrityClass) || code == pgCheckViolation
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func pgCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

func sqliteExtended(err error) (sqlite3.ErrNoExtended, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode, true
	}
	return 0, false
}

// FromDatabase converts a store error into an AppError for resource.
func FromDatabase(err error, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "").WithCause(err)
	case IsDuplicateError(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsForeignKeyError(err):
		return apperrors.Conflict("The " + resource + " references a row that does not exist or is still referenced.").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("database").WithCause(err)
	case IsConnectionError(err):
		return apperrors.ServiceUnavailable("database").WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
