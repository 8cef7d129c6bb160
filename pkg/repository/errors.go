package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// MapError turns sql.ErrNoRows into notFound and a unique violation into
// duplicate. Anything else passes through.
func MapError(err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case IsUniqueViolation(err):
		return duplicate
	default:
		return err
	}
}

// IsUniqueViolation reports a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool { return sqlState(err) == codeUniqueViolation }

// IsCheckViolation reports a Postgres CHECK constraint failure.
func IsCheckViolation(err error) bool { return sqlState(err) == codeCheckViolation }

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
