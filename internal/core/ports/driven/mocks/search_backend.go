package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-search/internal/core/query"
)

// Ensure mocks implement their ports
var (
	_ driven.QueryCompiler = (*MockQueryCompiler)(nil)
	_ driven.SearchBackend = (*MockSearchBackend)(nil)
)

// MockQueryCompiler is a mock implementation of QueryCompiler for testing.
// The compiled expression is the canonical request string, so equal
// requests compile equally.
type MockQueryCompiler struct {
	mu        sync.Mutex
	err       error
	compiled  int
	suggested int
}

// NewMockQueryCompiler creates a new MockQueryCompiler
func NewMockQueryCompiler() *MockQueryCompiler {
	return &MockQueryCompiler{}
}

func (m *MockQueryCompiler) Dialect() string {
	return "mock"
}

func (m *MockQueryCompiler) Compile(req query.Request, cfg *domain.IndexConfig) (*domain.CompiledQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.compiled++
	return &domain.CompiledQuery{
		Index:      cfg.Name,
		Dialect:    "mock",
		Expression: req.String(),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, nil
}

func (m *MockQueryCompiler) CompileSuggest(prefix string, limit int, cfg *domain.IndexConfig) (*domain.CompiledQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.suggested++
	return &domain.CompiledQuery{
		Index:      cfg.Name,
		Dialect:    "mock",
		Expression: "suggest " + prefix,
		Params:     []any{prefix},
		Limit:      limit,
	}, nil
}

// Helper methods for testing

func (m *MockQueryCompiler) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockQueryCompiler) CompileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compiled
}

func (m *MockQueryCompiler) SuggestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suggested
}

// MockSearchBackend is a mock implementation of SearchBackend for testing.
// It returns a fixed result and records every executed query.
type MockSearchBackend struct {
	mu       sync.Mutex
	result   *domain.RawResult
	err      error
	pingErr  error
	delay    time.Duration
	executed []*domain.CompiledQuery
}

// NewMockSearchBackend creates a new MockSearchBackend with an empty result
func NewMockSearchBackend() *MockSearchBackend {
	return &MockSearchBackend{result: &domain.RawResult{}}
}

func (m *MockSearchBackend) Execute(ctx context.Context, q *domain.CompiledQuery) (*domain.RawResult, error) {
	start := time.Now()

	m.mu.Lock()
	m.executed = append(m.executed, q)
	result, err, delay := m.result, m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &domain.CancelledError{Elapsed: time.Since(start), Err: ctx.Err()}
		}
	}
	if err != nil {
		return nil, err
	}

	out := &domain.RawResult{Total: result.Total, Elapsed: time.Since(start)}
	out.Rows = append(out.Rows, result.Rows...)
	return out, nil
}

func (m *MockSearchBackend) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

// Helper methods for testing

func (m *MockSearchBackend) SetResult(rows []domain.RawRow, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = &domain.RawResult{Rows: rows, Total: total}
}

func (m *MockSearchBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSearchBackend) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *MockSearchBackend) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

func (m *MockSearchBackend) Executed() []*domain.CompiledQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CompiledQuery, len(m.executed))
	copy(out, m.executed)
	return out
}
