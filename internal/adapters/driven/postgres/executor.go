package postgres

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-search/internal/adapters/driven/sqlbuild"
)

// NewSearchBackend runs compiled statements over the pool
func NewSearchBackend(db *DB) *sqlbuild.Executor {
	return sqlbuild.NewExecutor(db.DB, DialectName, ClassifyError)
}

// ClassifyError returns the SQLSTATE of err and whether retrying may help.
// Connection failures, resource exhaustion, operator intervention,
// statement timeouts, serialization failures and deadlocks are transient.
func ClassifyError(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57P"):
			return code, true
		case code == "57014", code == "40001", code == "40P01":
			return code, true
		}
		return code, false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return "bad_conn", true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "network", true
	}
	return "", false
}
