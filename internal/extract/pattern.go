package extract

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// PatternExtractor is the deterministic extraction floor: it treats each
// declarative sentence of the input as a candidate belief. An LLM-backed
// extractor replaces it when one is configured.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

func (e *PatternExtractor) ExtractBeliefs(_ context.Context, text string, category domain.CategoryLabel, _ string) ([]domain.BeliefProposal, error) {
	var proposals []domain.BeliefProposal

	for _, sentence := range splitSentences(text) {
		stmt := strings.TrimSpace(sentence)
		if stmt == "" || strings.HasSuffix(stmt, "?") {
			continue
		}
		stmt = strings.TrimRight(stmt, ".!")
		stmt = strings.TrimSpace(stmt)
		// Fragments carry too little to stand as beliefs.
		if len(strings.Fields(stmt)) < 3 {
			continue
		}
		stmt = strings.TrimSpace(domain.TruncateStatement(stmt))

		proposals = append(proposals, domain.BeliefProposal{
			Statement:  stmt,
			Category:   category,
			Confidence: 0.7,
			Polarity:   domain.DetectPolarity(stmt),
		})
	}

	return proposals, nil
}

// splitSentences keeps the terminator so questions stay recognizable.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
