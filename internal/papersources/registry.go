package papersources

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// SourceResult pairs one source with the outcome of its search. Exactly one
// of Result and Error is set, so callers can report partial failures without
// losing the sources that did answer.
type SourceResult struct {
	Source domain.SourceType
	Result *SearchResult
	Error  error
}

// Registry holds the configured paper sources and fans searches out across
// them. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source, replacing any earlier registration for the same
// source type.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns the source registered for sourceType, or nil.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns a snapshot of every registered source.
func (r *Registry) AllSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, source := range r.sources {
		sources = append(sources, source)
	}
	return sources
}

// EnabledSources returns a snapshot of the sources whose IsEnabled reports
// true. Disabled sources stay registered so they can be looked up by type,
// they are just excluded from fan-out searches.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// SearchAll runs the query against every enabled source.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return r.SearchSources(ctx, params, nil)
}

// SearchSources runs the query against the named sources concurrently and
// returns one SourceResult per source that ran, failures included. A nil or
// empty sourceTypes means every enabled source; requested types with no
// registration are skipped rather than reported as errors. Results keep the
// order of the resolved source list. Cancelling ctx cuts the in-flight
// searches short and their context errors come back in the results.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	sources := r.resolveSources(sourceTypes)
	if len(sources) == 0 {
		return nil
	}

	// Each goroutine owns its own slot, so the slice needs no locking and
	// the output order is independent of which source answers first.
	results := make([]SourceResult, len(sources))
	var g errgroup.Group
	for i, source := range sources {
		g.Go(func() error {
			result, err := source.Search(ctx, params)
			results[i] = SourceResult{
				Source: source.SourceType(),
				Result: result,
				Error:  err,
			}
			return nil
		})
	}
	// The goroutines never return errors; failures ride in the results.
	_ = g.Wait()

	return results
}

// resolveSources maps requested source types to registered sources, falling
// back to all enabled sources when none are named.
func (r *Registry) resolveSources(sourceTypes []domain.SourceType) []PaperSource {
	if len(sourceTypes) == 0 {
		return r.EnabledSources()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(sourceTypes))
	for _, st := range sourceTypes {
		if source, ok := r.sources[st]; ok {
			sources = append(sources, source)
		}
	}
	return sources
}
