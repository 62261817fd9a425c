package mocks

import (
	"sync"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure MockSearchObserver implements SearchObserver
var _ driven.SearchObserver = (*MockSearchObserver)(nil)

// SearchEvent is one recorded ObserveSearch call
type SearchEvent struct {
	Index     string
	Operation string
	Outcome   domain.SearchOutcome
	Results   int
}

// MockSearchObserver records telemetry for assertions
type MockSearchObserver struct {
	mu      sync.Mutex
	Events  []SearchEvent
	Hits    int
	Misses  int
	Reloads []bool
}

// NewMockSearchObserver creates a new MockSearchObserver
func NewMockSearchObserver() *MockSearchObserver {
	return &MockSearchObserver{}
}

func (m *MockSearchObserver) ObserveSearch(index, operation string, outcome domain.SearchOutcome, elapsed time.Duration, results int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, SearchEvent{Index: index, Operation: operation, Outcome: outcome, Results: results})
}

func (m *MockSearchObserver) ObserveCache(index string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.Hits++
	} else {
		m.Misses++
	}
}

func (m *MockSearchObserver) ObserveReload(success bool, indexes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloads = append(m.Reloads, success)
}

// Snapshot returns a copy of the recorded search events
func (m *MockSearchObserver) Snapshot() []SearchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SearchEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
