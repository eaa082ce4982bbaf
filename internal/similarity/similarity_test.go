package similarity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// fakeBackend serves a fixed candidate list for strategy tests.
type fakeBackend struct {
	nativeVector  bool
	candidates    []Candidate
	nativeMatches []Match
	nativeErr     error
	listErr       error

	nativeCalls  int
	listCalls    int
	keywordCalls [][]string
}

func (b *fakeBackend) HasNativeVector(ctx context.Context) bool { return b.nativeVector }

func (b *fakeBackend) NativeSimilar(ctx context.Context, q Query) ([]Match, error) {
	b.nativeCalls++
	if b.nativeErr != nil {
		return nil, b.nativeErr
	}
	return b.nativeMatches, nil
}

func (b *fakeBackend) ListCandidates(ctx context.Context, agentID string, includeInactive, withEmbeddings bool) ([]Candidate, error) {
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []Candidate
	for _, c := range b.candidates {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *fakeBackend) KeywordCandidates(ctx context.Context, agentID string, keywords []string, includeInactive bool, limit int) ([]Candidate, error) {
	b.keywordCalls = append(b.keywordCalls, keywords)
	var out []Candidate
	for _, c := range b.candidates {
		if c.AgentID != agentID {
			continue
		}
		lower := strings.ToLower(c.Content)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, c)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func candidate(agentID, content string, confidence float32, age time.Duration, embedding []float32) Candidate {
	return Candidate{
		ID:         uuid.New(),
		AgentID:    agentID,
		Content:    content,
		Confidence: confidence,
		CreatedAt:  time.Now().Add(-age),
		Embedding:  embedding,
	}
}

// fixedEmbedder returns a canned vector, or an error.
type fixedEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *fixedEmbedder) Dimension() int        { return len(e.vector) }
func (e *fixedEmbedder) IsDeterministic() bool { return true }

var _ domain.EmbeddingClient = (*fixedEmbedder)(nil)
var _ Backend = (*fakeBackend)(nil)
