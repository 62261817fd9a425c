package driven

import (
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// SearchObserver receives search telemetry (metrics)
type SearchObserver interface {
	// ObserveSearch records one finished search or autocomplete call
	ObserveSearch(index, operation string, outcome domain.SearchOutcome, elapsed time.Duration, results int)

	// ObserveCache records a cache lookup
	ObserveCache(index string, hit bool)

	// ObserveReload records a configuration reload
	ObserveReload(success bool, indexes int)
}

// NopObserver discards all telemetry
type NopObserver struct{}

func (NopObserver) ObserveSearch(string, string, domain.SearchOutcome, time.Duration, int) {}
func (NopObserver) ObserveCache(string, bool)                                               {}
func (NopObserver) ObserveReload(bool, int)                                                 {}
