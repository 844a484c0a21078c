// Package papersources provides interfaces and types for academic paper source clients.
//
// This package defines the foundational abstractions that all paper source implementations
// must follow. Each literature database (PubMed, arXiv) implements the PaperSource
// interface, allowing the research assistant to search multiple sources concurrently
// with a unified API.
//
// Example usage:
//
//	source := pubmed.New(cfg)
//	params := papersources.SearchParams{
//		Query:      "protein folding",
//		MaxResults: 5,
//	}
//	result, err := source.Search(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
// All fields except Query are optional.
type SearchParams struct {
	// Query is the search query string (required).
	// The format may vary by source - some support boolean operators
	// or field-specific searches.
	Query string

	// DateFrom filters papers published on or after this date.
	// If nil, no lower date bound is applied.
	DateFrom *time.Time

	// DateTo filters papers published on or before this date.
	// If nil, no upper date bound is applied.
	DateTo *time.Time

	// MaxResults limits the number of papers returned in a single request.
	// Sources may have their own maximum limits that override this value.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	Offset int
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the papers returned by the search.
	// May be empty if no papers match the search criteria.
	Papers []*domain.Paper

	// TotalResults is the total number of papers matching the query,
	// regardless of pagination limits. This value is provided by the
	// source API and may be an estimate for large result sets.
	TotalResults int

	// HasMore indicates whether additional results are available
	// beyond the current page.
	HasMore bool

	// NextOffset is the offset value to use for fetching the next page
	// of results. Only meaningful when HasMore is true.
	NextOffset int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all paper source clients must implement.
type PaperSource interface {
	// Search queries the paper source for papers matching the given parameters.
	// Returns a SearchResult containing the matching papers and pagination info.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform source-specific responses to domain.Paper
	//   - Include appropriate error wrapping with source context
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID retrieves a specific paper by its source-specific identifier
	// (e.g. PMID for PubMed, arXiv id for arXiv).
	//
	// Returns domain.ErrNotFound if the paper does not exist.
	GetByID(ctx context.Context, id string) (*domain.Paper, error)

	// SourceType returns the type identifier for this paper source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this paper source.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this paper source is currently enabled
	// and available for searches. A source may be disabled due to
	// configuration or missing API keys.
	IsEnabled() bool
}
