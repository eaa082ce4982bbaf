package similarity

import (
	"context"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// Strategy mode names accepted from config.
const (
	ModeAuto    = "auto"
	ModeNative  = "native"
	ModeVector  = "vector"
	ModeKeyword = "text"
)

// Selector picks a strategy per query. In auto mode it prefers native
// vector search, then exact in-memory cosine, then keyword matching, and
// degrades to keyword when embedding fails for a text query.
type Selector struct {
	mode     string
	embedder domain.EmbeddingClient
	logger   *zap.Logger

	native  *NativeStrategy
	exact   *ExactStrategy
	keyword *KeywordStrategy
}

func NewSelector(mode string, embedder domain.EmbeddingClient, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		mode:     mode,
		embedder: embedder,
		logger:   logger,
		native:   NewNativeStrategy(embedder),
		exact:    NewExactStrategy(embedder),
		keyword:  NewKeywordStrategy(),
	}
}

// Search runs the query with the configured strategy. Text-only queries
// fall back to keyword search when no embedder is available or embedding
// fails, so search never hard-fails just because the vector path is down.
func (s *Selector) Search(ctx context.Context, backend Backend, q Query) ([]Match, error) {
	strategy := s.resolve(ctx, backend, q)

	matches, err := strategy.Search(ctx, backend, q)
	if err != nil && q.Text != "" && strategy.Name() != s.keyword.Name() &&
		domain.IsKind(err, domain.KindEmbeddingUnavailable) {
		s.logger.Warn("similarity falling back to keyword search",
			zap.String("strategy", strategy.Name()),
			zap.Error(err))
		return s.keyword.Search(ctx, backend, q)
	}
	return matches, err
}

func (s *Selector) resolve(ctx context.Context, backend Backend, q Query) Strategy {
	switch s.mode {
	case ModeNative:
		return s.native
	case ModeVector:
		return s.exact
	case ModeKeyword:
		return s.keyword
	}

	// auto
	canEmbed := len(q.Vector) > 0 || (s.embedder != nil && q.Text != "")
	if !canEmbed {
		return s.keyword
	}
	if backend.HasNativeVector(ctx) {
		return s.native
	}
	return s.exact
}
