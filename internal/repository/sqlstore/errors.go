package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/gameratings/internal/repository"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// translate turns driver unique-constraint violations into
// *repository.DuplicateError and returns every other error unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &repository.DuplicateError{Field: pgConstraintField(pgErr.ConstraintName), Err: err}
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &repository.DuplicateError{Field: sqliteConstraintField(sqErr.Error()), Err: err}
		}
	}

	return err
}

// sqliteConstraintField extracts "email" from
// "UNIQUE constraint failed: users.email (2067)".
func sqliteConstraintField(msg string) string {
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if end := strings.IndexAny(rest, " ,)"); end >= 0 {
		rest = rest[:end]
	}
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		rest = rest[dot+1:]
	}
	return rest
}

// pgConstraintField maps the default names Postgres gives inline UNIQUE
// constraints (<table>_<column>_key) back to the column.
func pgConstraintField(name string) string {
	name = strings.TrimSuffix(name, "_key")
	for _, table := range []string{"user_data_", "users_", "games_", "reviews_"} {
		if strings.HasPrefix(name, table) {
			return strings.TrimPrefix(name, table)
		}
	}
	return name
}
