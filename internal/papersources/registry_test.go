package papersources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarpipe/research-assistant/internal/domain"
)

// fakeSource is a configurable PaperSource for registry tests.
type fakeSource struct {
	sourceType domain.SourceType
	name       string
	enabled    bool
	searchFn   func(ctx context.Context, params SearchParams) (*SearchResult, error)
}

func (f *fakeSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, params)
	}
	return &SearchResult{Source: f.sourceType}, nil
}

func (f *fakeSource) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	return nil, domain.NewNotFoundError("paper", id)
}

func (f *fakeSource) SourceType() domain.SourceType { return f.sourceType }
func (f *fakeSource) Name() string                  { return f.name }
func (f *fakeSource) IsEnabled() bool               { return f.enabled }

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and retrieves source", func(t *testing.T) {
		registry := NewRegistry()
		source := &fakeSource{sourceType: domain.SourceTypePubMed, name: "PubMed", enabled: true}

		registry.Register(source)

		got := registry.Get(domain.SourceTypePubMed)
		require.NotNil(t, got)
		assert.Equal(t, "PubMed", got.Name())
	})

	t.Run("replaces existing source of same type", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{sourceType: domain.SourceTypeArXiv, name: "old"})
		registry.Register(&fakeSource{sourceType: domain.SourceTypeArXiv, name: "new"})

		got := registry.Get(domain.SourceTypeArXiv)
		require.NotNil(t, got)
		assert.Equal(t, "new", got.Name())
	})

	t.Run("get returns nil for unknown type", func(t *testing.T) {
		registry := NewRegistry()
		assert.Nil(t, registry.Get(domain.SourceTypePubMed))
	})
}

func TestRegistry_EnabledSources(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeSource{sourceType: domain.SourceTypePubMed, name: "PubMed", enabled: true})
	registry.Register(&fakeSource{sourceType: domain.SourceTypeArXiv, name: "arXiv", enabled: false})

	assert.Len(t, registry.AllSources(), 2)

	enabled := registry.EnabledSources()
	require.Len(t, enabled, 1)
	assert.Equal(t, "PubMed", enabled[0].Name())
}

func TestRegistry_SearchAll(t *testing.T) {
	t.Run("searches all enabled sources concurrently", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypePubMed,
			enabled:    true,
			searchFn: func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				return &SearchResult{
					Source: domain.SourceTypePubMed,
					Papers: []*domain.Paper{{Identifier: "123", Source: domain.SourceTypePubMed}},
				}, nil
			},
		})
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypeArXiv,
			enabled:    true,
			searchFn: func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				return &SearchResult{
					Source: domain.SourceTypeArXiv,
					Papers: []*domain.Paper{{Identifier: "2301.00001", Source: domain.SourceTypeArXiv}},
				}, nil
			},
		})

		results := registry.SearchAll(context.Background(), SearchParams{Query: "crispr"})

		require.Len(t, results, 2)
		for _, r := range results {
			require.NoError(t, r.Error)
			require.NotNil(t, r.Result)
			assert.Len(t, r.Result.Papers, 1)
		}
	})

	t.Run("one failing source does not hide the other result", func(t *testing.T) {
		searchErr := errors.New("esearch failed: connection refused")
		registry := NewRegistry()
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypePubMed,
			enabled:    true,
			searchFn: func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				return nil, searchErr
			},
		})
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypeArXiv,
			enabled:    true,
		})

		results := registry.SearchAll(context.Background(), SearchParams{Query: "crispr"})

		require.Len(t, results, 2)

		var failed, succeeded int
		for _, r := range results {
			if r.Error != nil {
				failed++
				assert.Equal(t, domain.SourceTypePubMed, r.Source)
			} else {
				succeeded++
			}
		}
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, succeeded)
	})

	t.Run("skips disabled sources", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{sourceType: domain.SourceTypePubMed, enabled: false})

		results := registry.SearchAll(context.Background(), SearchParams{Query: "crispr"})
		assert.Empty(t, results)
	})

	t.Run("propagates context to sources", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypePubMed,
			enabled:    true,
			searchFn: func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return &SearchResult{}, nil
				}
			},
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results := registry.SearchAll(ctx, SearchParams{Query: "crispr"})

		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Error, context.Canceled)
	})
}

func TestRegistry_SearchSources(t *testing.T) {
	t.Run("searches only requested sources", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{sourceType: domain.SourceTypePubMed, enabled: true})
		registry.Register(&fakeSource{sourceType: domain.SourceTypeArXiv, enabled: true})

		results := registry.SearchSources(context.Background(), SearchParams{Query: "crispr"},
			[]domain.SourceType{domain.SourceTypeArXiv})

		require.Len(t, results, 1)
		assert.Equal(t, domain.SourceTypeArXiv, results[0].Source)
	})

	t.Run("results keep the requested source order", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{
			sourceType: domain.SourceTypePubMed,
			enabled:    true,
			searchFn: func(ctx context.Context, params SearchParams) (*SearchResult, error) {
				time.Sleep(20 * time.Millisecond)
				return &SearchResult{Source: domain.SourceTypePubMed}, nil
			},
		})
		registry.Register(&fakeSource{sourceType: domain.SourceTypeArXiv, enabled: true})

		results := registry.SearchSources(context.Background(), SearchParams{Query: "crispr"},
			[]domain.SourceType{domain.SourceTypePubMed, domain.SourceTypeArXiv})

		require.Len(t, results, 2)
		assert.Equal(t, domain.SourceTypePubMed, results[0].Source)
		assert.Equal(t, domain.SourceTypeArXiv, results[1].Source)
	})

	t.Run("skips unknown source types", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&fakeSource{sourceType: domain.SourceTypePubMed, enabled: true})

		results := registry.SearchSources(context.Background(), SearchParams{Query: "crispr"},
			[]domain.SourceType{domain.SourceTypeArXiv})

		assert.Empty(t, results)
	})
}
