package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

// MemoryService answers memory queries: lookup, filtered listing,
// similarity search, and deletion.
type MemoryService struct {
	memories domain.MemoryStore
	backend  similarity.Backend
	search   *similarity.Selector
	logger   *zap.Logger
}

func NewMemoryService(memories domain.MemoryStore, backend similarity.Backend, search *similarity.Selector, logger *zap.Logger) *MemoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryService{
		memories: memories,
		backend:  backend,
		search:   search,
		logger:   logger,
	}
}

// Get fetches a memory and bumps its access counters. The bump is best
// effort; a failed bump never fails the read.
func (s *MemoryService) Get(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m, err := s.memories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.memories.IncrementAccess(ctx, id); err != nil {
		s.logger.Warn("access increment failed",
			zap.String("memory_id", id.String()),
			zap.Error(err))
	}
	return m, nil
}

func (s *MemoryService) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	return s.memories.GetMany(ctx, ids)
}

func (s *MemoryService) List(ctx context.Context, agentID string, filter domain.FilterOptions, limit int) ([]domain.MemoryRecord, error) {
	if agentID == "" {
		return nil, domain.E(domain.KindInvalidInput, "agent_id is required")
	}
	return s.memories.FindByAgent(ctx, agentID, filter, limit)
}

// Search runs similarity search and returns full records with scores,
// preserving the ranking the strategy produced.
func (s *MemoryService) Search(ctx context.Context, q similarity.Query) ([]domain.MemoryWithScore, error) {
	if q.AgentID == "" {
		return nil, domain.E(domain.KindInvalidInput, "agent_id is required")
	}
	if q.Text == "" && len(q.Vector) == 0 {
		return nil, domain.E(domain.KindInvalidInput, "query text or vector is required")
	}

	matches, err := s.search.Search(ctx, s.backend, q)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []domain.MemoryWithScore{}, nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	scores := make(map[uuid.UUID]float32, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}

	records, err := s.memories.GetMany(ctx, ids)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load matched memories", err)
	}

	results := make([]domain.MemoryWithScore, 0, len(records))
	for _, r := range records {
		results = append(results, domain.MemoryWithScore{MemoryRecord: r, Score: scores[r.ID]})
	}
	return results, nil
}

func (s *MemoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.memories.Delete(ctx, id)
}

func (s *MemoryService) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return s.memories.DeleteMany(ctx, ids)
}
