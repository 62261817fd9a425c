package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-search/internal/core/query"
	"github.com/custodia-labs/sercha-search/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// Operation names reported to the observer
const (
	OperationSearch       = "search"
	OperationAutocomplete = "autocomplete"
)

// searchService implements the SearchService interface
type searchService struct {
	registry  *runtime.Registry
	compiler  driven.QueryCompiler
	backend   driven.SearchBackend
	cache     driven.ResultCache
	observer  driven.SearchObserver
	assembler *ResultAssembler
	logger    *slog.Logger

	queryTimeout time.Duration

	// flights coalesces concurrent identical cache misses
	flights singleflight.Group
}

// SearchServiceConfig holds the dependencies of the search service.
type SearchServiceConfig struct {
	Registry *runtime.Registry
	Compiler driven.QueryCompiler
	Backend  driven.SearchBackend
	Cache    driven.ResultCache    // Optional: nil disables result caching
	Observer driven.SearchObserver // Optional: metrics
	Logger   *slog.Logger

	// QueryTimeout bounds requests whose context has no deadline. An
	// index's own QueryTimeout takes precedence. Zero means no bound.
	QueryTimeout time.Duration
}

// NewSearchService creates a new SearchService
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observer := cfg.Observer
	if observer == nil {
		observer = driven.NopObserver{}
	}

	return &searchService{
		registry:     cfg.Registry,
		compiler:     cfg.Compiler,
		backend:      cfg.Backend,
		cache:        cfg.Cache,
		observer:     observer,
		assembler:    NewResultAssembler(),
		logger:       logger,
		queryTimeout: cfg.QueryTimeout,
	}
}

// CacheKey identifies req against cfg. It changes whenever the index
// configuration changes, so a reload can never serve results compiled
// against the old configuration.
func CacheKey(cfg *domain.IndexConfig, req query.Request) string {
	h := sha256.New()
	h.Write([]byte(cfg.Name))
	h.Write([]byte{0})
	h.Write([]byte(cfg.Fingerprint()))
	h.Write([]byte{0})
	h.Write([]byte(req.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// Search runs req against the named index
func (s *searchService) Search(ctx context.Context, index string, req query.Request) (*domain.SearchResponse, error) {
	start := time.Now()

	resp, err := s.search(ctx, index, req, start)

	results := 0
	if resp != nil {
		results = len(resp.Results)
	}
	s.finish(index, OperationSearch, start, results, err)
	return resp, err
}

func (s *searchService) search(ctx context.Context, index string, req query.Request, start time.Time) (*domain.SearchResponse, error) {
	cfg, err := s.registry.Get(index)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Limit = cfg.ClampLimit(req.Limit)

	key := CacheKey(cfg, req)
	if resp, ok := s.cached(ctx, cfg.Name, key); ok {
		resp.TookMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	ctx, cancel := s.withTimeout(ctx, cfg)
	defer cancel()

	ch := s.flights.DoChan(key, func() (any, error) {
		return s.execute(ctx, cfg, req, key)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &domain.CancelledError{Elapsed: time.Since(start), Err: ctx.Err()}
	}

	if res.Err != nil {
		// The flight was cancelled by the caller that started it, not by us
		if res.Shared && errors.Is(res.Err, domain.ErrCancelled) && ctx.Err() == nil {
			v, err := s.execute(ctx, cfg, req, key)
			if err != nil {
				return nil, err
			}
			res.Val = v
		} else {
			return nil, res.Err
		}
	}

	resp := res.Val.(*domain.SearchResponse)
	if res.Shared {
		resp = resp.Clone()
	}
	resp.TookMs = time.Since(start).Milliseconds()
	return resp, nil
}

// execute compiles, runs and assembles one request and caches the result
func (s *searchService) execute(ctx context.Context, cfg *domain.IndexConfig, req query.Request, key string) (*domain.SearchResponse, error) {
	cq, err := s.compiler.Compile(req, cfg)
	if err != nil {
		return nil, err
	}

	raw, err := s.backend.Execute(ctx, cq)
	if err != nil {
		s.logExecutionError(cq, err)
		return nil, err
	}

	resp := s.assembler.Assemble(req, cfg, raw)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.logger.Warn("failed to cache search response", "index", cfg.Name, "error", err)
		}
	}
	return resp, nil
}

func (s *searchService) cached(ctx context.Context, index, key string) (*domain.SearchResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	resp, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to uncached search
		s.logger.Warn("result cache lookup failed", "index", index, "error", err)
		return nil, false
	}
	s.observer.ObserveCache(index, ok)
	return resp, ok
}

// Autocomplete suggests completions of prefix from the index's suggest fields
func (s *searchService) Autocomplete(ctx context.Context, index, prefix string, limit int) ([]domain.Suggestion, error) {
	start := time.Now()

	suggestions, err := s.autocomplete(ctx, index, prefix, limit)

	s.finish(index, OperationAutocomplete, start, len(suggestions), err)
	return suggestions, err
}

func (s *searchService) autocomplete(ctx context.Context, index, prefix string, limit int) ([]domain.Suggestion, error) {
	cfg, err := s.registry.Get(index)
	if err != nil {
		return nil, err
	}

	cq, err := s.compiler.CompileSuggest(prefix, limit, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx, cfg)
	defer cancel()

	raw, err := s.backend.Execute(ctx, cq)
	if err != nil {
		s.logExecutionError(cq, err)
		return nil, err
	}

	return suggestions(raw.Rows, cq.Limit), nil
}

// suggestions de-duplicates rows case-insensitively, keeping the first
// (best ranked) spelling, and scales scores by the best one into (0,1].
func suggestions(rows []domain.RawRow, limit int) []domain.Suggestion {
	best := 0.0
	for _, row := range rows {
		best = max(best, row.Score)
	}

	out := make([]domain.Suggestion, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		text := strings.TrimSpace(row.ID)
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true

		score := 1.0
		if best > 0 {
			score = max(row.Score, 0) / best
		}
		out = append(out, domain.Suggestion{Text: text, Score: score})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Indexes describes the configured indexes, sorted by name
func (s *searchService) Indexes() []domain.IndexInfo {
	return s.registry.Infos()
}

// withTimeout bounds ctx by the index or service query timeout unless the
// caller already set a deadline.
func (s *searchService) withTimeout(ctx context.Context, cfg *domain.IndexConfig) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = s.queryTimeout
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *searchService) logExecutionError(cq *domain.CompiledQuery, err error) {
	switch domain.OutcomeOf(err) {
	case domain.OutcomeCancelled:
		s.logger.Info("search cancelled", "index", cq.Index, "error", err)
	case domain.OutcomeTransient:
		s.logger.Warn("transient search failure",
			"index", cq.Index,
			"dialect", cq.Dialect,
			"error", err,
		)
	default:
		s.logger.Error("search failed",
			"index", cq.Index,
			"dialect", cq.Dialect,
			"expression", cq.Expression,
			"params", cq.Params,
			"error", err,
		)
	}
}

func (s *searchService) finish(index, operation string, start time.Time, results int, err error) {
	elapsed := time.Since(start)
	outcome := domain.OutcomeOf(err)
	s.observer.ObserveSearch(index, operation, outcome, elapsed, results)

	switch outcome {
	case domain.OutcomeOK:
		s.logger.Debug(operation+" completed",
			"index", index,
			"results", results,
			"elapsed", elapsed,
		)
	case domain.OutcomeInvalid, domain.OutcomeNotFound:
		s.logger.Debug(operation+" rejected", "index", index, "error", err)
	}
}
