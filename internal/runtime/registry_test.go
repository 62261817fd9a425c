package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven/mocks"
)

func testConfig(name string) *domain.IndexConfig {
	return &domain.IndexConfig{
		Name:           name,
		Table:          name,
		IDColumn:       "id",
		Language:       "english",
		Fields:         []string{"name", "bio"},
		Weights:        map[string]domain.Tier{"name": domain.TierA},
		FuzzyThreshold: 0.3,
		MaxResults:     100,
		DefaultLimit:   20,
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get("people")
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected error to wrap ErrNotFound, got %v", err)
	}
}

func TestRegistry_Reload(t *testing.T) {
	cache := mocks.NewMockResultCache(time.Minute)
	r := NewRegistry(cache)

	err := r.Reload(context.Background(), []*domain.IndexConfig{testConfig("people"), testConfig("articles")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := r.Get("people")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Table != "people" {
		t.Errorf("expected table people, got %s", cfg.Table)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "articles" || names[1] != "people" {
		t.Errorf("expected sorted names, got %v", names)
	}
	if cache.InvalidateCount() != 1 {
		t.Errorf("expected cache invalidated once, got %d", cache.InvalidateCount())
	}
}

func TestRegistry_ReloadReplacesWholeSet(t *testing.T) {
	r := NewRegistry(nil)
	ctx := context.Background()

	_ = r.Reload(ctx, []*domain.IndexConfig{testConfig("people")})
	_ = r.Reload(ctx, []*domain.IndexConfig{testConfig("articles")})

	if _, err := r.Get("people"); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Error("expected removed index to be gone after reload")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 index, got %d", r.Len())
	}
}

func TestRegistry_ReloadInvalidKeepsCurrent(t *testing.T) {
	cache := mocks.NewMockResultCache(time.Minute)
	r := NewRegistry(cache)
	ctx := context.Background()
	_ = r.Reload(ctx, []*domain.IndexConfig{testConfig("people")})

	bad := testConfig("articles")
	bad.FuzzyThreshold = 2

	err := r.Reload(ctx, []*domain.IndexConfig{bad})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "indexes.articles.fuzzy_threshold" {
		t.Errorf("unexpected field %q", vErr.Field)
	}

	if _, err := r.Get("people"); err != nil {
		t.Errorf("expected current set to survive a failed reload, got %v", err)
	}
	if cache.InvalidateCount() != 1 {
		t.Errorf("a failed reload must not invalidate the cache, got %d invalidations", cache.InvalidateCount())
	}
}

func TestRegistry_ReloadDuplicate(t *testing.T) {
	r := NewRegistry(nil)

	err := r.Reload(context.Background(), []*domain.IndexConfig{testConfig("people"), testConfig("people")})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input for duplicate names, got %v", err)
	}
}

func TestRegistry_ReloadCopiesConfigs(t *testing.T) {
	r := NewRegistry(nil)
	cfg := testConfig("people")
	_ = r.Reload(context.Background(), []*domain.IndexConfig{cfg})

	cfg.Fields[0] = "changed"

	got, _ := r.Get("people")
	if got.Fields[0] != "name" {
		t.Errorf("registry config was mutated through the caller's copy: %v", got.Fields)
	}
}

func TestRegistry_Infos(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Reload(context.Background(), []*domain.IndexConfig{testConfig("people")})

	infos := r.Infos()
	if len(infos) != 1 {
		t.Fatalf("expected 1 info, got %d", len(infos))
	}
	if infos[0].Name != "people" || infos[0].MaxResults != 100 {
		t.Errorf("unexpected info: %+v", infos[0])
	}
	if len(infos[0].SuggestFields) != 1 || infos[0].SuggestFields[0] != "name" {
		t.Errorf("expected tier A fields as suggest fields, got %v", infos[0].SuggestFields)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(mocks.NewMockResultCache(time.Minute))
	ctx := context.Background()
	_ = r.Reload(ctx, []*domain.IndexConfig{testConfig("people")})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := r.Get("people"); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			_ = r.Reload(ctx, []*domain.IndexConfig{testConfig("people")})
		}()
	}
	wg.Wait()
}
