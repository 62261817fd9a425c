package sqlite

import (
	"database/sql"
	"errors"
	"strconv"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/sercha-search/internal/adapters/driven/sqlbuild"
)

// NewSearchBackend runs compiled statements over db
func NewSearchBackend(db *sql.DB) *sqlbuild.Executor {
	return sqlbuild.NewExecutor(db, DialectName, ClassifyError)
}

// ClassifyError returns the SQLite result code of err. A busy or locked
// database is transient.
func ClassifyError(err error) (string, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	code := sqliteErr.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return strconv.Itoa(code), true
	}
	return strconv.Itoa(code), false
}
