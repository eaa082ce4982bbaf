package similarity

import (
	"context"
	"strings"
	"unicode"
)

// KeywordStrategy is the text fallback: it extracts keywords from the
// query, asks the backend for candidates containing any of them, then
// rescores by Jaccard overlap of the keyword sets. No embeddings needed.
type KeywordStrategy struct{}

func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

func (s *KeywordStrategy) Name() string { return "keyword" }

// maxQueryKeywords caps how many keywords drive the candidate query.
const maxQueryKeywords = 5

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "her": true, "his": true,
	"i": true, "in": true, "is": true, "it": true, "its": true,
	"my": true, "of": true, "on": true, "or": true, "our": true,
	"she": true, "that": true, "the": true, "their": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true,
	"will": true, "with": true, "you": true, "your": true,
}

func (s *KeywordStrategy) Search(ctx context.Context, backend Backend, q Query) ([]Match, error) {
	keywords := ExtractKeywords(q.Text)
	if len(keywords) == 0 {
		return nil, nil
	}

	fetch := q.Limit * 4
	if fetch < 50 {
		fetch = 50
	}
	candidates, err := backend.KeywordCandidates(ctx, q.AgentID, keywords, q.IncludeInactive, fetch)
	if err != nil {
		return nil, err
	}

	querySet := wordSet(q.Text)
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := jaccard(querySet, wordSet(c.Content))
		matches = append(matches, Match{Candidate: c, Score: score})
	}
	sortMatches(matches)
	return applyThresholdAndLimit(matches, q.Threshold, q.Limit), nil
}

// ExtractKeywords returns up to maxQueryKeywords distinct lowercase words
// in first-occurrence order, with stop words removed.
func ExtractKeywords(text string) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, w := range tokenize(text) {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == maxQueryKeywords {
			break
		}
	}
	return keywords
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range tokenize(text) {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}
