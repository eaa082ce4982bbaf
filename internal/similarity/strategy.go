// Package similarity provides interchangeable search strategies over any
// store that can surface candidates: database-native vector search,
// exact in-memory cosine, and a keyword/Jaccard text fallback. All three
// obey the same contract: scores in [0,1], descending, filtered by
// threshold, at most limit entries.
package similarity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Candidate is a searchable entity surfaced by a backend: a memory's
// content or a belief's statement.
type Candidate struct {
	ID         uuid.UUID
	AgentID    string
	Content    string
	Confidence float32
	CreatedAt  time.Time
	Embedding  []float32
}

// Match is a candidate with its similarity score.
type Match struct {
	Candidate
	Score float32
}

// Query describes one similarity search. Either Text or Vector must be set.
type Query struct {
	Text            string
	Vector          []float32
	AgentID         string
	Threshold       float32
	Limit           int
	IncludeInactive bool
}

// Backend is the storage surface strategies search over. Both the memory
// and belief stores implement it.
type Backend interface {
	// HasNativeVector reports whether the storage layer can run cosine
	// distance itself.
	HasNativeVector(ctx context.Context) bool
	// NativeSimilar runs the search in the database; q.Vector must be set.
	NativeSimilar(ctx context.Context, q Query) ([]Match, error)
	// ListCandidates returns the agent's candidates, optionally with
	// embeddings loaded.
	ListCandidates(ctx context.Context, agentID string, includeInactive, withEmbeddings bool) ([]Candidate, error)
	// KeywordCandidates returns candidates whose content matches any of the
	// keywords (case-insensitive substring).
	KeywordCandidates(ctx context.Context, agentID string, keywords []string, includeInactive bool, limit int) ([]Candidate, error)
}

// Strategy ranks candidates for a query.
type Strategy interface {
	Name() string
	Search(ctx context.Context, backend Backend, q Query) ([]Match, error)
}

func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// applyThresholdAndLimit assumes matches are already sorted descending.
func applyThresholdAndLimit(matches []Match, threshold float32, limit int) []Match {
	out := matches[:0]
	for _, m := range matches {
		if m.Score >= threshold {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
