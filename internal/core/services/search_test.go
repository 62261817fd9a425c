package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-search/internal/core/query"
	"github.com/custodia-labs/sercha-search/internal/runtime"
)

type testHarness struct {
	registry *runtime.Registry
	compiler *mocks.MockQueryCompiler
	backend  *mocks.MockSearchBackend
	cache    *mocks.MockResultCache
	observer *mocks.MockSearchObserver
}

// newTestHarness wires a search service over mocks with one "people" index
func newTestHarness(t *testing.T, timeout time.Duration) (*testHarness, *searchService) {
	t.Helper()
	h := &testHarness{
		compiler: mocks.NewMockQueryCompiler(),
		backend:  mocks.NewMockSearchBackend(),
		cache:    mocks.NewMockResultCache(time.Minute),
		observer: mocks.NewMockSearchObserver(),
	}
	h.registry = runtime.NewRegistry(h.cache)
	if err := h.registry.Reload(context.Background(), []*domain.IndexConfig{assemblerConfig()}); err != nil {
		t.Fatalf("failed to load test index: %v", err)
	}

	svc := NewSearchService(SearchServiceConfig{
		Registry:     h.registry,
		Compiler:     h.compiler,
		Backend:      h.backend,
		Cache:        h.cache,
		Observer:     h.observer,
		QueryTimeout: timeout,
	}).(*searchService)
	return h, svc
}

func johnRequest() query.Request {
	return query.NewRequest(query.Match{Field: "name", Text: "john"})
}

func TestSearchService_Search(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetResult([]domain.RawRow{
		{ID: "1", Score: 2, Fields: map[string]any{"name": "John Doe"}},
		{ID: "2", Score: 1, Fields: map[string]any{"name": "John Smith"}},
	}, 42)

	resp, err := svc.Search(context.Background(), "people", johnRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) != 2 || resp.Results[0].ID != "1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if resp.Total != 42 || !resp.Pagination.HasNext {
		t.Errorf("unexpected total/pagination: %d %+v", resp.Total, resp.Pagination)
	}

	events := h.observer.Snapshot()
	if len(events) != 1 || events[0].Outcome != domain.OutcomeOK || events[0].Results != 2 {
		t.Errorf("unexpected observer events: %+v", events)
	}
}

func TestSearchService_UnknownIndex(t *testing.T) {
	h, svc := newTestHarness(t, 0)

	_, err := svc.Search(context.Background(), "missing", johnRequest())

	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	if events := h.observer.Snapshot(); events[0].Outcome != domain.OutcomeNotFound {
		t.Errorf("expected not_found outcome, got %s", events[0].Outcome)
	}
}

func TestSearchService_InvalidRequest(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	req := johnRequest()
	req.Offset = -1

	_, err := svc.Search(context.Background(), "people", req)

	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "offset" {
		t.Errorf("expected offset ValidationError, got %v", err)
	}
	if h.compiler.CompileCount() != 0 {
		t.Error("invalid requests must not be compiled")
	}
}

func TestSearchService_ClampsLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{5, 5},
		{500, 100},
	}

	for _, tt := range tests {
		h, svc := newTestHarness(t, 0)
		req := johnRequest()
		req.Limit = tt.limit

		resp, err := svc.Search(context.Background(), "people", req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		executed := h.backend.Executed()
		if executed[0].Limit != tt.want {
			t.Errorf("limit %d compiled as %d, want %d", tt.limit, executed[0].Limit, tt.want)
		}
		if resp.Pagination.Limit != tt.want {
			t.Errorf("limit %d paginated as %d, want %d", tt.limit, resp.Pagination.Limit, tt.want)
		}
	}
}

func TestSearchService_CachesResponses(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetResult([]domain.RawRow{{ID: "1", Score: 1, Fields: map[string]any{"name": "John"}}}, 1)
	ctx := context.Background()

	first, err := svc.Search(ctx, "people", johnRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Results[0].Fields["name"] = "mutated by caller"

	second, err := svc.Search(ctx, "people", johnRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.backend.Executed()) != 1 {
		t.Errorf("expected one backend call, got %d", len(h.backend.Executed()))
	}
	if second.Results[0].Fields["name"] != "John" {
		t.Errorf("cached response leaked a caller mutation: %v", second.Results[0].Fields["name"])
	}
	if h.observer.Hits != 1 || h.observer.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", h.observer.Hits, h.observer.Misses)
	}
}

func TestSearchService_ReloadInvalidatesCache(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	ctx := context.Background()

	_, _ = svc.Search(ctx, "people", johnRequest())

	cfg := assemblerConfig()
	cfg.DefaultLimit = 10
	if err := h.registry.Reload(ctx, []*domain.IndexConfig{cfg}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	_, _ = svc.Search(ctx, "people", johnRequest())

	if len(h.backend.Executed()) != 2 {
		t.Errorf("expected a fresh backend call after reload, got %d calls", len(h.backend.Executed()))
	}
	if h.backend.Executed()[1].Limit != 10 {
		t.Errorf("expected the reloaded default limit, got %d", h.backend.Executed()[1].Limit)
	}
}

func TestSearchService_CacheErrorDegrades(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.cache.SetError(errors.New("cache down"))

	if _, err := svc.Search(context.Background(), "people", johnRequest()); err != nil {
		t.Fatalf("a failing cache must not fail the search: %v", err)
	}
}

func TestSearchService_CallerDeadline(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Search(ctx, "people", johnRequest())

	if !errors.Is(err, domain.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if events := h.observer.Snapshot(); events[0].Outcome != domain.OutcomeCancelled {
		t.Errorf("expected cancelled outcome, got %s", events[0].Outcome)
	}
	if h.cache.Count() != 0 {
		t.Error("a cancelled search must not be cached")
	}
}

func TestSearchService_QueryTimeout(t *testing.T) {
	h, svc := newTestHarness(t, 20*time.Millisecond)
	h.backend.SetDelay(time.Second)

	start := time.Now()
	_, err := svc.Search(context.Background(), "people", johnRequest())

	if !errors.Is(err, domain.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("query timeout not applied, took %v", time.Since(start))
	}
}

func TestSearchService_ExecutionErrors(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetError(&domain.SearchExecutionError{
		Index:     "people",
		Backend:   "mock",
		Code:      "08006",
		Transient: true,
		Err:       errors.New("connection reset"),
	})

	_, err := svc.Search(context.Background(), "people", johnRequest())

	if !domain.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
	if events := h.observer.Snapshot(); events[0].Outcome != domain.OutcomeTransient {
		t.Errorf("expected transient outcome, got %s", events[0].Outcome)
	}
	if h.cache.Count() != 0 {
		t.Error("failed searches must not be cached")
	}
}

func TestSearchService_CompileError(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.compiler.SetError(domain.NewValidationError("status", "not a filter field"))

	_, err := svc.Search(context.Background(), "people", johnRequest())

	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if len(h.backend.Executed()) != 0 {
		t.Error("backend must not run when compilation fails")
	}
}

func TestSearchService_CoalescesConcurrentMisses(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetDelay(100 * time.Millisecond)
	h.backend.SetResult([]domain.RawRow{{ID: "1", Score: 1}}, 1)

	const n = 10
	var wg sync.WaitGroup
	responses := make([]*domain.SearchResponse, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Search(context.Background(), "people", johnRequest())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			responses[i] = resp
		}(i)
	}
	wg.Wait()

	if calls := len(h.backend.Executed()); calls >= n {
		t.Errorf("expected concurrent identical searches to share backend calls, got %d", calls)
	}
	for i := 1; i < n; i++ {
		if responses[i] != nil && responses[i] == responses[0] {
			t.Error("each caller must own its response")
		}
	}
}

func TestSearchService_Autocomplete(t *testing.T) {
	h, svc := newTestHarness(t, 0)
	h.backend.SetResult([]domain.RawRow{
		{ID: "John Doe", Score: 2},
		{ID: "john doe", Score: 1.5},
		{ID: "Johnson", Score: 1},
	}, 3)

	got, err := svc.Autocomplete(context.Background(), "people", "jo", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected case-insensitive de-duplication, got %+v", got)
	}
	if got[0].Text != "John Doe" || got[0].Score != 1 {
		t.Errorf("unexpected first suggestion %+v", got[0])
	}
	if got[1].Text != "Johnson" || got[1].Score != 0.5 {
		t.Errorf("unexpected second suggestion %+v", got[1])
	}
	if h.compiler.SuggestCount() != 1 {
		t.Errorf("expected one suggest compilation, got %d", h.compiler.SuggestCount())
	}
	if events := h.observer.Snapshot(); events[0].Operation != OperationAutocomplete {
		t.Errorf("expected autocomplete operation, got %s", events[0].Operation)
	}
}

func TestSearchService_AutocompleteUnknownIndex(t *testing.T) {
	_, svc := newTestHarness(t, 0)

	if _, err := svc.Autocomplete(context.Background(), "missing", "jo", 5); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSuggestions_ZeroScores(t *testing.T) {
	got := suggestions([]domain.RawRow{{ID: "a"}, {ID: "b"}, {ID: " "}}, 10)

	if len(got) != 2 {
		t.Fatalf("expected blank suggestions to be dropped, got %+v", got)
	}
	for _, s := range got {
		if s.Score != 1 {
			t.Errorf("expected score 1 when nothing ranks, got %v", s.Score)
		}
	}
}

func TestSearchService_Indexes(t *testing.T) {
	_, svc := newTestHarness(t, 0)

	infos := svc.Indexes()
	if len(infos) != 1 || infos[0].Name != "people" {
		t.Errorf("unexpected indexes: %+v", infos)
	}
}

func TestCacheKey(t *testing.T) {
	cfg := assemblerConfig()
	a := CacheKey(cfg, johnRequest())

	if a != CacheKey(cfg, johnRequest()) {
		t.Error("equal requests must share a key")
	}

	other := johnRequest()
	other.Offset = 20
	if a == CacheKey(cfg, other) {
		t.Error("different pages must not share a key")
	}

	changed := cfg.Clone()
	changed.Weights["bio"] = domain.TierA
	if a == CacheKey(changed, johnRequest()) {
		t.Error("a config change must change the key")
	}
}
