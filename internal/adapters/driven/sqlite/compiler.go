package sqlite

import (
	"github.com/custodia-labs/sercha-search/internal/adapters/driven/sqlbuild"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure Compiler implements QueryCompiler
var _ driven.QueryCompiler = (*Compiler)(nil)

// Compiler compiles search requests to SQLite FTS5 statements
type Compiler struct {
	*sqlbuild.Compiler
}

// NewCompiler creates a SQLite Compiler
func NewCompiler() *Compiler {
	return &Compiler{Compiler: sqlbuild.NewCompiler(Dialect{})}
}
