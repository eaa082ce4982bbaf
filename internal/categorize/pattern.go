package categorize

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// PatternEngine is the categorization floor: case-insensitive keyword
// matching into a fixed set of buckets with a fixed confidence table.
// An LLM-backed engine replaces it when one is configured.
type PatternEngine struct{}

func NewPatternEngine() *PatternEngine {
	return &PatternEngine{}
}

type bucket struct {
	primary    string
	secondary  string
	confidence float32
	keywords   []string
}

// Order matters: first matching bucket wins.
var buckets = []bucket{
	{"question", "inquiry", 0.8, []string{"?", "how do", "how can", "what is", "what are", "why does", "where is", "can you", "could you"}},
	{"issue", "problem", 0.75, []string{"error", "bug", "broken", "fail", "crash", "exception", "not working", "doesn't work"}},
	{"education", "learning", 0.7, []string{"learn", "tutorial", "course", "study", "teach", "lesson", "documentation"}},
	{"technical", "engineering", 0.7, []string{"code", "api", "server", "database", "deploy", "function", "config", "install", "library", "service"}},
}

func (e *PatternEngine) Categorize(_ context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	lower := strings.ToLower(text)

	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return domain.NewCategoryLabel(b.primary, b.secondary, matchedHints(lower, hints), b.confidence), nil
			}
		}
	}

	return domain.NewCategoryLabel("general", "information", matchedHints(lower, hints), 0.5), nil
}

// matchedHints keeps only hints that actually occur in the text.
func matchedHints(lower string, hints []string) []string {
	var tags []string
	for _, h := range hints {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			tags = append(tags, h)
		}
	}
	return tags
}
