package websift

// Tier is a discrete quality classification derived from a numeric score.
type Tier string

// Quality tiers, best first.
const (
	TierExcellent  Tier = "EXCELLENT"
	TierGood       Tier = "GOOD"
	TierAcceptable Tier = "ACCEPTABLE"
	TierPoor       Tier = "POOR"
)

// Tier thresholds. These are fixed, not derived from data.
const (
	ExcellentThreshold  = 85
	GoodThreshold       = 70
	AcceptableThreshold = 50
)

// TierFor maps a 0-100 score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= ExcellentThreshold:
		return TierExcellent
	case score >= GoodThreshold:
		return TierGood
	case score >= AcceptableThreshold:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// Qualifies reports whether the tier meets the minimum quality bar
// (ACCEPTABLE or better).
func (t Tier) Qualifies() bool {
	return t == TierExcellent || t == TierGood || t == TierAcceptable
}

// Criteria holds the per-criterion sub-scores, each 0-100.
type Criteria struct {
	Length    int `json:"length"`
	Structure int `json:"structure"`
	Lexical   int `json:"lexical"`
	Coherence int `json:"coherence"`
	Authority int `json:"authority"`
	Relevance int `json:"relevance"`
}

// QualityScore is the assessment of one ExtractionResult against a query.
type QualityScore struct {
	Score    int      `json:"score"`
	Tier     Tier     `json:"tier"`
	Criteria Criteria `json:"criteria"`
}

// QualityAssessor scores extracted content.
//
// Assess must be a pure function of its inputs so that it is safe to call
// from any goroutine. The url is an input because the source-authority
// criterion depends on the domain.
type QualityAssessor interface {
	Assess(url, content, query string) QualityScore
}
