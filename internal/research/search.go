package research

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/papersources"
)

// PaperSearcher is the literature-source collaborator contract the engine
// calls during the search stage.
type PaperSearcher interface {
	Search(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error)
}

// RegistrySearcher adapts a papersources.Registry to the PaperSearcher
// contract. It fans the query out to every enabled source, merges the
// results, and caps the merged list at maxPapers.
type RegistrySearcher struct {
	registry *papersources.Registry
	logger   zerolog.Logger
}

// NewRegistrySearcher creates a searcher backed by the given registry.
func NewRegistrySearcher(registry *papersources.Registry, logger zerolog.Logger) *RegistrySearcher {
	return &RegistrySearcher{
		registry: registry,
		logger:   logger,
	}
}

// Search queries all enabled sources concurrently. A source failure is
// tolerated as long as at least one source succeeds; when every source
// fails the joined errors are returned.
func (s *RegistrySearcher) Search(ctx context.Context, topic string, maxPapers int) ([]domain.Paper, error) {
	results := s.registry.SearchAll(ctx, papersources.SearchParams{
		Query:      topic,
		MaxResults: maxPapers,
	})
	if len(results) == 0 {
		return nil, errors.New("no literature sources are enabled")
	}

	// Stable source order so repeated searches interleave the same way.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})

	var papers []domain.Paper
	var errs []error
	for _, r := range results {
		if r.Error != nil {
			s.logger.Warn().
				Err(r.Error).
				Str("source", string(r.Source)).
				Str("topic", topic).
				Msg("literature source search failed")
			errs = append(errs, r.Error)
			continue
		}
		for _, p := range r.Result.Papers {
			if p == nil {
				continue
			}
			papers = append(papers, *p)
		}
	}

	if len(papers) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if len(papers) > maxPapers {
		papers = papers[:maxPapers]
	}
	return papers, nil
}
