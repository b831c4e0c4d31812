package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	ErrCodeUniqueViolation     = "23505"
	ErrCodeForeignKeyViolation = "23503"
	ErrCodeCheckViolation      = "23514"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports a unique constraint violation.
// With a non-empty constraint name only that constraint matches.
func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, ErrCodeUniqueViolation, constraint)
}

// IsForeignKeyViolation reports a foreign key violation
func IsForeignKeyViolation(err error, constraint string) bool {
	return hasCode(err, ErrCodeForeignKeyViolation, constraint)
}

// IsCheckViolation reports a CHECK constraint violation
func IsCheckViolation(err error, constraint string) bool {
	return hasCode(err, ErrCodeCheckViolation, constraint)
}

func hasCode(err error, code, constraint string) bool {
	pgErr, ok := pgError(err)
	if !ok || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
