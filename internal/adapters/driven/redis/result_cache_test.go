package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// setupTestCache creates a ResultCache over a miniredis instance
func setupTestCache(t *testing.T, ttl time.Duration) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewResultCache(client, "", ttl), mr
}

func testResponse() *domain.SearchResponse {
	return &domain.SearchResponse{
		Results: []domain.ScoredDocument{
			{
				ID:              "1",
				Fields:          map[string]any{"name": "John Doe"},
				Score:           2.5,
				NormalizedScore: 1,
				Highlights:      map[string]string{"name": "<mark>John</mark> Doe"},
			},
		},
		Total:      1,
		TookMs:     3,
		Pagination: domain.Pagination{Offset: 0, Limit: 20},
	}
}

func TestNewResultCache_DefaultPrefix(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	if cache.prefix != DefaultKeyPrefix {
		t.Errorf("expected prefix %q, got %q", DefaultKeyPrefix, cache.prefix)
	}
	if cache.TTL() != time.Minute {
		t.Errorf("expected TTL 1m, got %v", cache.TTL())
	}
}

func TestResultCache_Miss(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	resp, ok, err := cache.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || resp != nil {
		t.Error("expected a miss")
	}
}

func TestResultCache_SetGet(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", testResponse()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Total != 1 || len(got.Results) != 1 {
		t.Fatalf("unexpected response: %+v", got)
	}
	doc := got.Results[0]
	if doc.ID != "1" || doc.Score != 2.5 || doc.NormalizedScore != 1 {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.Highlights["name"] != "<mark>John</mark> Doe" {
		t.Errorf("unexpected highlights: %v", doc.Highlights)
	}
	if got.Pagination.Limit != 20 {
		t.Errorf("unexpected pagination: %+v", got.Pagination)
	}
}

func TestResultCache_TTL(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	_ = cache.Set(ctx, "k", testResponse())
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestResultCache_ZeroTTLDisablesStore(t *testing.T) {
	cache, mr := setupTestCache(t, 0)

	if err := cache.Set(context.Background(), "k", testResponse()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestResultCache_Invalidate(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	_ = cache.Set(ctx, "k", testResponse())
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("expected miss after invalidation")
	}

	// New entries land in the new generation
	_ = cache.Set(ctx, "k", testResponse())
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Error("expected hit after re-populating")
	}
}

func TestResultCache_ConnectionError(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	mr.Close()

	if _, _, err := cache.Get(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is down")
	}
	if err := cache.Ping(context.Background()); err == nil {
		t.Error("expected ping error when redis is down")
	}
}
