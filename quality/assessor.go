// Package quality scores extracted page content against a query.
package quality

import (
	"math"
	"net/url"
	"strings"
	"unicode"

	"github.com/fwojciec/websift"
)

// Ensure Assessor implements websift.QualityAssessor.
var _ websift.QualityAssessor = (*Assessor)(nil)

// Default tuning values.
const (
	DefaultTargetWords = 400
	DefaultThinWords   = 100
	DefaultMinWords    = 20

	// thinCap keeps thin content out of GOOD and EXCELLENT.
	thinCap = websift.GoodThreshold - 1

	ttrWindow = 100
)

// Weights holds the relative weight of each criterion. A zero weight
// removes the criterion from the score.
type Weights struct {
	Length    float64
	Structure float64
	Lexical   float64
	Coherence float64
	Authority float64
	Relevance float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Length:    25,
		Structure: 15,
		Lexical:   15,
		Coherence: 15,
		Authority: 10,
		Relevance: 20,
	}
}

// DefaultAuthorities lists domains treated as highly authoritative.
var DefaultAuthorities = []string{
	"wikipedia.org",
	"github.com",
	"stackoverflow.com",
	"python.org",
	"go.dev",
	"developer.mozilla.org",
	"arxiv.org",
}

// Assessor is a heuristic QualityAssessor. It holds no mutable state and is
// safe for concurrent use.
type Assessor struct {
	weights     Weights
	authorities []string
	targetWords int
	thinWords   int
	minWords    int
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithWeights overrides the criterion weights.
func WithWeights(w Weights) Option {
	return func(a *Assessor) {
		a.weights = w
	}
}

// WithAuthorities replaces the list of known-good domains.
func WithAuthorities(domains []string) Option {
	return func(a *Assessor) {
		a.authorities = domains
	}
}

// WithTargetWords sets the word count at which length adequacy saturates.
func WithTargetWords(n int) Option {
	return func(a *Assessor) {
		a.targetWords = max(1, n)
	}
}

// WithThinWords sets the word count below which content is capped at
// ACCEPTABLE.
func WithThinWords(n int) Option {
	return func(a *Assessor) {
		a.thinWords = n
	}
}

// NewAssessor creates an Assessor with default weights.
func NewAssessor(opts ...Option) *Assessor {
	a := &Assessor{
		weights:     DefaultWeights(),
		authorities: DefaultAuthorities,
		targetWords: DefaultTargetWords,
		thinWords:   DefaultThinWords,
		minWords:    DefaultMinWords,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess scores content extracted from rawURL against query.
func (a *Assessor) Assess(rawURL, content, query string) websift.QualityScore {
	words := tokenize(content)
	if len(words) < a.minWords {
		return websift.QualityScore{Score: 0, Tier: websift.TierPoor}
	}

	terms := queryTerms(query)
	c := websift.Criteria{
		Length:    a.length(len(words)),
		Structure: structure(content, len(words)),
		Lexical:   lexical(words),
		Coherence: coherence(content),
		Authority: a.authority(rawURL),
		Relevance: relevance(words, terms),
	}

	w := a.weights
	if len(terms) == 0 {
		w.Relevance = 0
	}

	total := w.Length + w.Structure + w.Lexical + w.Coherence + w.Authority + w.Relevance
	if total <= 0 {
		return websift.QualityScore{Score: 0, Tier: websift.TierPoor, Criteria: c}
	}
	sum := w.Length*float64(c.Length) +
		w.Structure*float64(c.Structure) +
		w.Lexical*float64(c.Lexical) +
		w.Coherence*float64(c.Coherence) +
		w.Authority*float64(c.Authority) +
		w.Relevance*float64(c.Relevance)

	score := int(math.Round(sum / total))
	if len(words) < a.thinWords {
		score = min(score, thinCap)
	}
	score = max(0, min(100, score))

	return websift.QualityScore{
		Score:    score,
		Tier:     websift.TierFor(score),
		Criteria: c,
	}
}

func (a *Assessor) length(words int) int {
	return min(100, words*100/a.targetWords)
}

// structure compares the number of markdown blocks against what a page of
// this length is expected to have. Headings count double.
func structure(content string, words int) int {
	var paragraphs, headings int
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		paragraphs++
		for _, line := range strings.Split(block, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				headings++
			}
		}
	}
	expected := max(1, words/100)
	blocks := paragraphs + 2*headings
	return min(100, blocks*100/expected)
}

// lexical maps the mean segmental type-token ratio onto 0-100. A ratio of
// 0.3 or less is repetitive filler; 0.7 or more is fully diverse prose.
func lexical(words []string) int {
	var sum float64
	var segments int
	for start := 0; start < len(words); start += ttrWindow {
		end := min(start+ttrWindow, len(words))
		seg := words[start:end]
		if len(seg) < ttrWindow/2 && segments > 0 {
			break
		}
		seen := make(map[string]struct{}, len(seg))
		for _, w := range seg {
			seen[w] = struct{}{}
		}
		sum += float64(len(seen)) / float64(len(seg))
		segments++
	}
	if segments == 0 {
		return 0
	}
	ttr := sum / float64(segments)
	return scale(ttr, 0.3, 0.7)
}

// coherence rewards varied but not erratic sentence lengths.
func coherence(content string) int {
	lengths := sentenceLengths(content)
	if len(lengths) < 2 {
		return 50
	}
	var sum float64
	for _, n := range lengths {
		sum += float64(n)
	}
	mean := sum / float64(len(lengths))
	var sq float64
	for _, n := range lengths {
		d := float64(n) - mean
		sq += d * d
	}
	cv := math.Sqrt(sq/float64(len(lengths))) / mean

	var score float64
	switch {
	case cv < 0.3:
		score = cv / 0.3 * 100
	case cv <= 0.9:
		score = 100
	case cv < 2.0:
		score = (2.0 - cv) / 1.1 * 100
	}
	if mean < 4 {
		score /= 2
	}
	return int(math.Round(score))
}

func (a *Assessor) authority(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return 0
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, d := range a.authorities {
		if host == d || strings.HasSuffix(host, "."+d) {
			return 100
		}
	}
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".edu"):
		return 100
	case strings.HasSuffix(host, ".org"):
		return 70
	case strings.HasSuffix(host, ".com"), strings.HasSuffix(host, ".net"), strings.HasSuffix(host, ".io"), strings.HasSuffix(host, ".dev"):
		return 50
	default:
		return 40
	}
}

func relevance(words, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}
	var hits int
	for _, t := range terms {
		if _, ok := present[t]; ok {
			hits++
		}
	}
	return hits * 100 / len(terms)
}

// scale maps v linearly from [lo, hi] onto [0, 100], clamped.
func scale(v, lo, hi float64) int {
	switch {
	case v <= lo:
		return 0
	case v >= hi:
		return 100
	}
	return int(math.Round((v - lo) / (hi - lo) * 100))
}

// tokenize splits text into lowercase words, dropping markdown punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func sentenceLengths(text string) []int {
	var out []int
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	for _, s := range sentences {
		if n := len(tokenize(s)); n > 0 {
			out = append(out, n)
		}
	}
	return out
}

func queryTerms(query string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, t := range tokenize(query) {
		if len(t) <= 2 || stopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"how": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "why": true, "with": true, "this": true, "that": true,
	"from": true, "they": true, "have": true, "will": true, "your": true,
	"does": true, "into": true, "about": true, "there": true, "their": true,
	"than": true, "then": true, "them": true, "these": true, "those": true,
	"its": true, "is": true, "best": true, "way": true, "use": true,
}
