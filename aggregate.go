package websift

import "slices"

// AggregatedResponse is the ranked result of one top-level request.
// It is not modified after Aggregate returns it.
type AggregatedResponse struct {
	Query          string               `json:"query"`
	Outcomes       []*ExtractionOutcome `json:"outcomes"`
	RequestedCount int                  `json:"requestedCount"`
	ActualCount    int                  `json:"actualCount"`

	// Candidates is the number of races that contributed outcomes.
	Candidates int `json:"candidates"`

	// Partial is true when no candidate qualified and the response is made
	// of low-confidence fallbacks.
	Partial bool `json:"partial"`
}

// Aggregate ranks outcomes and truncates them to requested.
//
// Non-partial outcomes rank ahead of all partial ones. Within each group the
// order is score descending, total elapsed ascending, then candidate
// position. Partial outcomes are only included when no outcome qualified,
// and only those carrying a fallback result. An outcome whose content hash
// matches an already-selected outcome is skipped.
//
// Returning fewer than requested outcomes is not an error.
func Aggregate(query string, outcomes []*ExtractionOutcome, requested int) *AggregatedResponse {
	resp := &AggregatedResponse{
		Query:          query,
		RequestedCount: requested,
		Candidates:     len(outcomes),
	}

	var qualified, fallback []*ExtractionOutcome
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		if !o.Partial && o.Result != nil {
			qualified = append(qualified, o)
		} else if o.Result != nil {
			fallback = append(fallback, o)
		}
	}

	pool := qualified
	if len(pool) == 0 {
		pool = fallback
		resp.Partial = len(pool) > 0
	}

	ranked := slices.Clone(pool)
	slices.SortStableFunc(ranked, compareOutcomes)

	selected := make([]*ExtractionOutcome, 0, min(len(ranked), max(requested, 0)))
	seen := make(map[string]bool)
	for _, o := range ranked {
		if len(selected) >= requested {
			break
		}
		if h := o.Result.ContentHash; h != "" {
			if seen[h] {
				continue
			}
			seen[h] = true
		}
		selected = append(selected, o)
	}

	resp.Outcomes = selected
	resp.ActualCount = len(selected)
	return resp
}

// compareOutcomes orders outcomes best first.
func compareOutcomes(a, b *ExtractionOutcome) int {
	if a.Partial != b.Partial {
		if a.Partial {
			return 1
		}
		return -1
	}
	if sa, sb := outcomeScore(a), outcomeScore(b); sa != sb {
		return sb - sa
	}
	if a.TotalElapsed != b.TotalElapsed {
		if a.TotalElapsed < b.TotalElapsed {
			return -1
		}
		return 1
	}
	return a.Position - b.Position
}

func outcomeScore(o *ExtractionOutcome) int {
	if o.Score == nil {
		return -1
	}
	return o.Score.Score
}
