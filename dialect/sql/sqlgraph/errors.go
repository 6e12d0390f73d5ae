package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/syssam/recordstore"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return recordstore.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// mssqlError is implemented by go-mssqldb errors.
type mssqlError interface {
	SQLErrorNumber() int32
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// SQL Server error numbers for constraint violations.
const (
	mssqlUniqueConstraint = 2627 // Violation of PRIMARY KEY or UNIQUE constraint
	mssqlUniqueIndex      = 2601 // Cannot insert duplicate key row
	mssqlConstraintFailed = 547  // FOREIGN KEY or CHECK constraint conflict
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes for constraint violations. Connections
// without extended codes report 19 and are matched by message.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok {
		return e.Code == pgUniqueViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlDuplicateEntry
	}
	if e, ok := asError[mssqlError](err); ok {
		n := e.SQLErrorNumber()
		return n == mssqlUniqueConstraint || n == mssqlUniqueIndex
	}
	if e, ok := asError[*sqlite.Error](err); ok && (e.Code() == sqliteConstraintUnique || e.Code() == sqliteConstraintPrimaryKey) {
		return true
	}
	// Fallback to string matching for drivers that do not expose codes.
	return containsAny(err.Error(),
		"Error 1062",                  // MySQL
		"violates unique constraint",  // Postgres
		"UNIQUE constraint failed",    // SQLite
		"Cannot insert duplicate key", // SQL Server
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok {
		return e.Code == pgForeignKeyViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlForeignKeyParent || e.Number == mysqlForeignKeyChild
	}
	if e, ok := asError[mssqlError](err); ok {
		return e.SQLErrorNumber() == mssqlConstraintFailed && strings.Contains(err.Error(), "FOREIGN KEY")
	}
	if e, ok := asError[*sqlite.Error](err); ok && e.Code() == sqliteConstraintForeignKey {
		return true
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[*pq.Error](err); ok {
		return e.Code == pgCheckViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlCheckConstraintViolate
	}
	if e, ok := asError[mssqlError](err); ok {
		return e.SQLErrorNumber() == mssqlConstraintFailed && strings.Contains(err.Error(), "CHECK")
	}
	if e, ok := asError[*sqlite.Error](err); ok && e.Code() == sqliteConstraintCheck {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// classify wraps driver constraint violations in a recordstore.ConstraintError.
func classify(err error) error {
	switch {
	case err == nil || recordstore.IsConstraintError(err):
		return err
	case IsUniqueConstraintError(err):
		return recordstore.NewConstraintError("unique", err)
	case IsForeignKeyConstraintError(err):
		return recordstore.NewConstraintError("foreign key", err)
	case IsCheckConstraintError(err):
		return recordstore.NewConstraintError("check", err)
	default:
		return err
	}
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
