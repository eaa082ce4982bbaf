package similarity

import (
	"context"
	"math"
	"sort"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// ExactStrategy loads the agent's candidates with their embeddings and
// computes cosine similarity in memory. It gives the same ranking as the
// native strategy and works on storage without vector support.
type ExactStrategy struct {
	embedder domain.EmbeddingClient
}

func NewExactStrategy(embedder domain.EmbeddingClient) *ExactStrategy {
	return &ExactStrategy{embedder: embedder}
}

func (s *ExactStrategy) Name() string { return "exact" }

func (s *ExactStrategy) Search(ctx context.Context, backend Backend, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		if s.embedder == nil {
			return nil, domain.E(domain.KindEmbeddingUnavailable, "exact similarity requires a query vector or an embedder")
		}
		vec, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, domain.WrapErr(domain.KindEmbeddingUnavailable, "embed similarity query", err)
		}
		q.Vector = vec
	}

	candidates, err := backend.ListCandidates(ctx, q.AgentID, q.IncludeInactive, true)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		score := clampScore(cosineSimilarity(q.Vector, c.Embedding))
		matches = append(matches, Match{Candidate: c, Score: score})
	}
	sortMatches(matches)
	return applyThresholdAndLimit(matches, q.Threshold, q.Limit), nil
}

// cosineSimilarity returns 0 for mismatched lengths, empty vectors, or
// zero vectors rather than erroring; a zero score just means no match.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// sortMatches orders by score descending; ties break by confidence
// descending, then by creation time ascending so older entries win.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
}
