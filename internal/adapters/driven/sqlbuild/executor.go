package sqlbuild

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure Executor implements SearchBackend
var _ driven.SearchBackend = (*Executor)(nil)

// Classifier extracts the backend error code from err and reports whether
// the failure is transient (worth retrying with backoff).
type Classifier func(err error) (code string, transient bool)

// Executor runs compiled statements over a database/sql pool. The pool is
// owned by the caller.
type Executor struct {
	db       *sql.DB
	backend  string
	classify Classifier
}

// NewExecutor creates an Executor. A nil classify treats every failure
// as fatal.
func NewExecutor(db *sql.DB, backend string, classify Classifier) *Executor {
	if classify == nil {
		classify = func(error) (string, bool) { return "", false }
	}
	return &Executor{db: db, backend: backend, classify: classify}
}

// Execute runs q and scans its rows. The total comes from the window count
// column; an empty page past the first falls back to CountExpression.
func (e *Executor) Execute(ctx context.Context, q *domain.CompiledQuery) (*domain.RawResult, error) {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, q.Expression, q.Params...)
	if err != nil {
		return nil, e.fail(ctx, q, q.Expression, start, err)
	}
	defer rows.Close()

	result, hasTotal, err := scanRows(rows)
	if err != nil {
		return nil, e.fail(ctx, q, q.Expression, start, err)
	}

	switch {
	case hasTotal && len(result.Rows) > 0:
	case q.Offset > 0 && q.CountExpression != "":
		if err := e.db.QueryRowContext(ctx, q.CountExpression, q.Params...).Scan(&result.Total); err != nil {
			return nil, e.fail(ctx, q, q.CountExpression, start, err)
		}
	default:
		result.Total = q.Offset + len(result.Rows)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// Ping verifies the database is reachable
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", e.backend, err)
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, q *domain.CompiledQuery, expr string, start time.Time, err error) error {
	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.CancelledError{Elapsed: elapsed, Err: ctxErr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.CancelledError{Elapsed: elapsed, Err: err}
	}
	code, transient := e.classify(err)
	return &domain.SearchExecutionError{
		Index:      q.Index,
		Backend:    e.backend,
		Code:       code,
		Transient:  transient,
		Elapsed:    elapsed,
		Expression: expr,
		Err:        err,
	}
}

func scanRows(rows *sql.Rows) (*domain.RawResult, bool, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	result := &domain.RawResult{}
	hasTotal := false
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, err
		}

		row := domain.RawRow{Fields: make(map[string]any, len(cols))}
		for i, col := range cols {
			v := normalize(values[i])
			switch {
			case col == ColID:
				row.ID = toString(v)
			case col == ColRank:
				row.Score = toFloat(v)
			case col == ColAgeDays:
				row.AgeDays = toFloat(v)
			case col == ColScore:
				// Ordering only; the assembler recomputes the boosted score
			case col == ColTotal:
				result.Total = int(toFloat(v))
				hasTotal = true
			case strings.HasPrefix(col, ColFieldRankPrefix):
				if row.FieldScores == nil {
					row.FieldScores = make(map[string]float64)
				}
				row.FieldScores[strings.TrimPrefix(col, ColFieldRankPrefix)] = toFloat(v)
			default:
				row.Fields[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return result, hasTotal, nil
}

// normalize copies driver-owned bytes into a string
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
