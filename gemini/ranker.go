package gemini

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/fwojciec/websift"
	"google.golang.org/genai"
)

// DefaultModel is the model used for ranking.
const DefaultModel = "gemini-2.5-flash"

// ContentGenerator is the subset of the Gemini models API used by Ranker.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ ContentGenerator = (*genai.Models)(nil)

var _ websift.Ranker = (*Ranker)(nil)

// Ranker implements websift.Ranker by asking Gemini to order search results
// and suggest extraction strategies per URL. When the API call fails or the
// reply cannot be parsed, ranking is delegated to Fallback.
type Ranker struct {
	models   ContentGenerator
	model    string
	fallback websift.Ranker
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithModel sets the Gemini model name.
func WithModel(model string) RankerOption {
	return func(r *Ranker) {
		r.model = model
	}
}

// NewRanker creates a Ranker. fallback is required.
func NewRanker(models ContentGenerator, fallback websift.Ranker, opts ...RankerOption) *Ranker {
	r := &Ranker{
		models:   models,
		model:    DefaultModel,
		fallback: fallback,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// rankReply is the JSON document the model is asked to produce.
type rankReply struct {
	Rankings []struct {
		Index      int      `json:"index"`
		Score      int      `json:"score"`
		Strategies []string `json:"strategies"`
	} `json:"rankings"`
}

// Rank orders results by model-assigned relevance. Results the model left
// out are appended in provider order with a zero rank hint.
func (r *Ranker) Rank(ctx context.Context, query string, results []websift.SearchResult) ([]websift.CandidateURL, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if r.models == nil {
		return r.fallback.Rank(ctx, query, results)
	}

	resp, err := r.models.GenerateContent(ctx, r.model,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildRankPrompt(query, results)}},
		}},
		BuildRankConfig(),
	)
	if err != nil || resp == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.fallback.Rank(ctx, query, results)
	}

	candidates, err := ParseRankReply(resp.Text(), query, results)
	if err != nil {
		return r.fallback.Rank(ctx, query, results)
	}
	return candidates, nil
}

// BuildRankConfig returns the GenerateContentConfig for ranking calls.
func BuildRankConfig() *genai.GenerateContentConfig {
	temp := float32(0.1)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You rank web search results by how likely the page answers the query. " +
					"For each result suggest extraction strategies: " +
					`"static" for simple server-rendered pages, ` +
					`"advanced" for articles and documentation with boilerplate, ` +
					`"browser" for pages that need JavaScript. ` +
					`Reply with JSON only: {"rankings":[{"index":1,"score":0-100,"strategies":["static"]}]}.`,
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
}

// BuildRankPrompt lists the results with 1-based indices.
func BuildRankPrompt(query string, results []websift.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\n<results>\n", query)
	for i, res := range results {
		sb.WriteString("<result>\n")
		fmt.Fprintf(&sb, "<index>%d</index>\n", i+1)
		fmt.Fprintf(&sb, "<url>%s</url>\n", res.URL)
		fmt.Fprintf(&sb, "<title>%s</title>\n", res.Title)
		fmt.Fprintf(&sb, "<snippet>%s</snippet>\n", res.Snippet)
		sb.WriteString("</result>\n")
	}
	sb.WriteString("</results>")
	return sb.String()
}

// ParseRankReply converts a model reply into candidates. Out-of-range and
// repeated indices are ignored. An error is returned when the reply is not
// valid JSON or ranks nothing.
func ParseRankReply(text, query string, results []websift.SearchResult) ([]websift.CandidateURL, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var reply rankReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, websift.Errorf(websift.EINTERNAL, "parsing rank reply: %v", err)
	}

	type ranked struct {
		index int
		score int
		strat []string
	}
	seen := make(map[int]bool, len(results))
	var picks []ranked
	for _, rk := range reply.Rankings {
		i := rk.Index - 1
		if i < 0 || i >= len(results) || seen[i] {
			continue
		}
		seen[i] = true
		picks = append(picks, ranked{
			index: i,
			score: min(100, max(0, rk.Score)),
			strat: websift.NormalizeStrategies(rk.Strategies),
		})
	}
	if len(picks) == 0 {
		return nil, websift.Errorf(websift.EINTERNAL, "rank reply ranked no results")
	}
	slices.SortStableFunc(picks, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})
	for i := range results {
		if !seen[i] {
			picks = append(picks, ranked{index: i})
		}
	}

	candidates := make([]websift.CandidateURL, len(picks))
	for pos, p := range picks {
		res := results[p.index]
		candidates[pos] = websift.CandidateURL{
			URL:        res.URL,
			Query:      query,
			Title:      res.Title,
			Snippet:    res.Snippet,
			RankHint:   p.score,
			Strategies: p.strat,
			Position:   pos,
		}
	}
	return candidates, nil
}
