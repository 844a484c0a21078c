package domain

import (
	"strings"
	"time"
)

// Paper represents an academic paper returned by a literature source.
type Paper struct {
	// Identifier is the source-native identifier (PMID, arXiv id, ...).
	Identifier string `json:"identifier"`

	// Source names the literature source that provided the paper.
	Source SourceType `json:"source"`

	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	Link     string   `json:"link,omitempty"`
	DOI      string   `json:"doi,omitempty"`

	// PublishedAt is the publication date when the source provides one.
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// HasIdentifier returns true if the paper carries a usable identifier.
func (p *Paper) HasIdentifier() bool {
	return strings.TrimSpace(p.Identifier) != ""
}

// AuthorLine returns the authors joined for display, or "Unknown" when
// the source provided none.
func (p *Paper) AuthorLine() string {
	if len(p.Authors) == 0 {
		return "Unknown"
	}
	return strings.Join(p.Authors, ", ")
}

// Clone returns a deep copy of the paper.
func (p *Paper) Clone() *Paper {
	cp := *p

	if p.Authors != nil {
		cp.Authors = make([]string, len(p.Authors))
		copy(cp.Authors, p.Authors)
	}

	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}

	return &cp
}
