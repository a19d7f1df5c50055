package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps driver errors of postgres and sqlite onto the gateway error kinds.
func classify(err error) error {
	if err == nil || errors.Classified(err) {
		return err
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, errors.ErrNotFound)
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrProvider)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return errors.Wrap(err, pgErrorKind(pgErr.Code))
	}

	var liteErr *sqlite.Error
	if stderrors.As(err, &liteErr) {
		return errors.Wrap(err, sqliteErrorKind(liteErr.Code(), liteErr.Error()))
	}

	return errors.Wrap(err, errors.ErrProvider)
}

func pgErrorKind(code string) error {
	switch {
	case code == "23505":
		return errors.ErrAlreadyExists
	case code == "42501" || strings.HasPrefix(code, "28"):
		return errors.ErrUnauthorized
	case strings.HasPrefix(code, "22") || strings.HasPrefix(code, "23"):
		return errors.ErrValidation
	case code == "42703" || code == "42P01" || code == "42804":
		// undefined column, undefined table, datatype mismatch
		return errors.ErrValidation
	}
	return errors.ErrProvider
}

func sqliteErrorKind(code int, msg string) error {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return errors.ErrAlreadyExists
	case sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG:
		return errors.ErrValidation
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY:
		return errors.ErrUnauthorized
	}

	if code&0xff == sqlite3.SQLITE_CONSTRAINT {
		return errors.ErrValidation
	}

	if code&0xff == sqlite3.SQLITE_ERROR {
		for _, m := range []string{"no such column", "has no column named", "no such table"} {
			if strings.Contains(msg, m) {
				return errors.ErrValidation
			}
		}
	}

	return errors.ErrProvider
}

func wrapf(err error, format string, args ...any) error {
	return classify(fmt.Errorf(format+": %w", append(args, err)...))
}
