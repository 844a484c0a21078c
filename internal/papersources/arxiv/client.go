package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/observability"
	"github.com/scholarpipe/research-assistant/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit. The arXiv API asks
	// clients to make no more than one request every three seconds.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 10

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool

	// Metrics records API request counts and latencies. May be nil.
	Metrics *observability.Metrics
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		SourceName: string(domain.SourceTypeArXiv),
		Metrics:    cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("arxiv source is disabled")
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewSourceAPIError(sourceName, resp.StatusCode, string(body))
	}

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	nextOffset := params.Offset + len(papers)
	hasMore := nextOffset < feed.TotalResults

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific paper by its arXiv ID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, errors.New("arxiv source is disabled")
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	query := url.Values{}
	query.Set("id_list", id)
	baseURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewSourceAPIError(sourceName, resp.StatusCode, string(body))
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(feed.Entries) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	paper := entryToPaper(&feed.Entries[0])
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}

	searchQuery := "all:" + params.Query

	if params.DateFrom != nil || params.DateTo != nil {
		if dateFilter := buildDateFilter(params.DateFrom, params.DateTo); dateFilter != "" {
			searchQuery = searchQuery + " AND " + dateFilter
		}
	}

	query.Set("search_query", searchQuery)

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}
	query.Set("max_results", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}

	// Sort by submission date (newest first)
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildDateFilter constructs the arXiv date filter string.
func buildDateFilter(from, to *time.Time) string {
	var fromStr, toStr string

	if from != nil {
		fromStr = from.Format("20060102") + "0000"
	} else {
		fromStr = "*"
	}

	if to != nil {
		toStr = to.Format("20060102") + "2359"
	} else {
		toStr = "*"
	}

	return fmt.Sprintf("submittedDate:[%s TO %s]", fromStr, toStr)
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
// Returns nil when the entry carries no usable arXiv ID.
func entryToPaper(entry *Entry) *domain.Paper {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	var publishedAt *time.Time
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			publishedAt = &t
		}
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	// Prefer the abstract page link; fall back to a constructed URL.
	link := ""
	for _, l := range entry.Links {
		if l.Rel == "alternate" || l.Type == "text/html" {
			link = l.Href
			break
		}
	}
	if link == "" {
		link = "https://arxiv.org/abs/" + arxivID
	}

	return &domain.Paper{
		Identifier: arxivID,
		Source:     domain.SourceTypeArXiv,
		// arXiv titles and abstracts include embedded newlines and padding.
		Title:       normalizeWhitespace(entry.Title),
		Authors:     authors,
		Abstract:    normalizeWhitespace(entry.Summary),
		Journal:     strings.TrimSpace(entry.JournalRef),
		Link:        link,
		DOI:         strings.TrimSpace(entry.DOI),
		PublishedAt: publishedAt,
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" yields "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
