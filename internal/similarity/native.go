package similarity

import (
	"context"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// NativeStrategy pushes the search into the database, which computes
// cosine distance itself. It needs either a query vector or an embedder
// to produce one.
type NativeStrategy struct {
	embedder domain.EmbeddingClient
}

func NewNativeStrategy(embedder domain.EmbeddingClient) *NativeStrategy {
	return &NativeStrategy{embedder: embedder}
}

func (s *NativeStrategy) Name() string { return "native" }

func (s *NativeStrategy) Search(ctx context.Context, backend Backend, q Query) ([]Match, error) {
	if len(q.Vector) == 0 {
		if s.embedder == nil {
			return nil, domain.E(domain.KindEmbeddingUnavailable, "native similarity requires a query vector or an embedder")
		}
		vec, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, domain.WrapErr(domain.KindEmbeddingUnavailable, "embed similarity query", err)
		}
		q.Vector = vec
	}

	matches, err := backend.NativeSimilar(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Score = clampScore(matches[i].Score)
	}
	return applyThresholdAndLimit(matches, q.Threshold, q.Limit), nil
}
