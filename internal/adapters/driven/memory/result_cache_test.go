package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

func testResponse() *domain.SearchResponse {
	return &domain.SearchResponse{
		Results: []domain.ScoredDocument{
			{ID: "1", Fields: map[string]any{"name": "John Doe"}, Score: 2, NormalizedScore: 1},
		},
		Total:      1,
		Pagination: domain.Pagination{Limit: 20},
	}
}

func TestResultCache_SetGet(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(10, time.Minute)

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := cache.Set(ctx, "k", testResponse()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Total != 1 || got.Results[0].ID != "1" {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestResultCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(10, time.Minute)
	resp := testResponse()
	_ = cache.Set(ctx, "k", resp)

	// Mutating the stored original must not leak into the cache
	resp.Results[0].Fields["name"] = "changed"

	first, _, _ := cache.Get(ctx, "k")
	first.Results[0].Fields["name"] = "mutated"

	second, _, _ := cache.Get(ctx, "k")
	if second.Results[0].Fields["name"] != "John Doe" {
		t.Errorf("cached entry was mutated: %v", second.Results[0].Fields["name"])
	}
}

func TestResultCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(10, 20*time.Millisecond)
	_ = cache.Set(ctx, "k", testResponse())

	time.Sleep(60 * time.Millisecond)

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestResultCache_Eviction(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(2, time.Minute)
	_ = cache.Set(ctx, "a", testResponse())
	_ = cache.Set(ctx, "b", testResponse())
	_ = cache.Set(ctx, "c", testResponse())

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Error("least recently used entry should be evicted")
	}
}

func TestResultCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(0, time.Minute)
	_ = cache.Set(ctx, "a", testResponse())
	_ = cache.Set(ctx, "b", testResponse())

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate", cache.Len())
	}
	if cache.TTL() != time.Minute {
		t.Errorf("TTL() = %v", cache.TTL())
	}
}

func TestResultCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	cache := NewResultCache(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, "k", testResponse())
				if resp, ok, _ := cache.Get(ctx, "k"); ok {
					resp.Results[0].Fields["name"] = "local"
				}
			}
		}()
	}
	wg.Wait()

	got, ok, _ := cache.Get(ctx, "k")
	if !ok || got.Results[0].Fields["name"] != "John Doe" {
		t.Errorf("unexpected entry after concurrent use: %+v", got)
	}
}
