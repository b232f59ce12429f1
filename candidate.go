package websift

import "context"

// SearchResult is a raw hit returned by a web search provider.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"` // provider name, e.g. "duckduckgo"
}

// SearchService finds candidate pages for a query.
type SearchService interface {
	// Search returns up to limit results in provider order.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// CandidateURL is a URL admitted for extraction, as produced by a Ranker.
// It is consumed exactly once by a race.
type CandidateURL struct {
	URL      string `json:"url"`
	Query    string `json:"query"`
	Title    string `json:"title,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	RankHint int    `json:"rankHint"` // relevance 0-100 assigned by the ranker

	// Strategies restricts which strategies may race for this URL.
	// Empty means every registered strategy.
	Strategies []string `json:"strategies,omitempty"`

	// Position is the candidate's index in ranker order. The aggregator
	// uses it as the final tie-break.
	Position int `json:"position"`
}

// Validate returns an error if the candidate contains invalid fields.
func (c *CandidateURL) Validate() error {
	if c.URL == "" {
		return Errorf(EINVALID, "candidate URL required")
	}
	return nil
}

// Allows reports whether the named strategy may race for this candidate.
func (c *CandidateURL) Allows(strategy string) bool {
	if len(c.Strategies) == 0 {
		return true
	}
	for _, s := range c.Strategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// Ranker orders search results by relevance to a query and may suggest
// which strategies suit each URL.
type Ranker interface {
	// Rank returns candidates in descending relevance order.
	// Position is set to the index in the returned slice.
	Rank(ctx context.Context, query string, results []SearchResult) ([]CandidateURL, error)
}
