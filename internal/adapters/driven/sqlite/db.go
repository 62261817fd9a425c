package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Open opens the database at path. Pragmas travel in the DSN so every
// pooled connection gets them, not just the first one.
// Searched tables must have rowids, and each searched table <t> needs an
// FTS5 table <t>_fts whose columns are the index's searchable fields and
// whose rowids match <t>.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives and dies with its connection
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// DSN appends the connection pragmas to path. File databases also get WAL
// journaling so readers do not block behind the writer.
func DSN(path string) string {
	pragmas := []string{"busy_timeout(5000)", "temp_store(MEMORY)"}
	if path != MemoryPath {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}
