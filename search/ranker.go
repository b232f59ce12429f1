package search

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/fwojciec/websift"
)

var _ websift.Ranker = KeywordRanker{}

// Sites whose content is rendered client-side.
var scriptedSites = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com",
	"youtube.com", "tiktok.com", "linkedin.com",
}

// Sites with heavy layout around the main content.
var clutteredSites = []string{
	"amazon.com", "ebay.com", "cnn.com", "bbc.com",
	"medium.com", "reddit.com", "github.com",
}

// KeywordRanker orders results by query term matches in title and snippet.
// It needs no network access and serves as the fallback ranker.
type KeywordRanker struct{}

// Rank scores each result +10 per query term found in its title and +5 per
// term found in its snippet. Ties keep provider order.
func (KeywordRanker) Rank(_ context.Context, query string, results []websift.SearchResult) ([]websift.CandidateURL, error) {
	terms := queryTerms(query)

	type scored struct {
		res   websift.SearchResult
		score int
	}
	ranked := make([]scored, len(results))
	for i, r := range results {
		title := strings.ToLower(r.Title)
		snippet := strings.ToLower(r.Snippet)
		score := 0
		for _, t := range terms {
			if strings.Contains(title, t) {
				score += 10
			}
			if strings.Contains(snippet, t) {
				score += 5
			}
		}
		ranked[i] = scored{res: r, score: score}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	maxScore := 15 * len(terms)
	candidates := make([]websift.CandidateURL, len(ranked))
	for i, r := range ranked {
		hint := 0
		if maxScore > 0 {
			hint = r.score * 100 / maxScore
		}
		candidates[i] = websift.CandidateURL{
			URL:        r.res.URL,
			Query:      query,
			Title:      r.res.Title,
			Snippet:    r.res.Snippet,
			RankHint:   hint,
			Strategies: SuggestStrategies(r.res.URL),
			Position:   i,
		}
	}
	return candidates, nil
}

// SuggestStrategies picks strategies from the URL alone. Script-rendered
// sites only get the browser, cluttered sites skip the static extractor, and
// everything else races every strategy (nil).
func SuggestStrategies(rawURL string) []string {
	lower := strings.ToLower(rawURL)
	for _, site := range scriptedSites {
		if hostContains(lower, site) {
			return []string{websift.StrategyBrowser}
		}
	}
	for _, site := range clutteredSites {
		if hostContains(lower, site) {
			return []string{websift.StrategyAdvanced, websift.StrategyBrowser}
		}
	}
	return nil
}

// hostContains reports whether site appears in rawURL as a domain label
// boundary, so that "x.com" does not match "box.com".
func hostContains(rawURL, site string) bool {
	return strings.Contains(rawURL, "://"+site) || strings.Contains(rawURL, "."+site)
}

func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if len(f) > 2 && !slices.Contains(terms, f) {
			terms = append(terms, f)
		}
	}
	return terms
}
