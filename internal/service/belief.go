package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

// BeliefService answers belief queries and conflict administration.
type BeliefService struct {
	beliefs   domain.BeliefStore
	conflicts domain.ConflictStore
	backend   similarity.Backend
	search    *similarity.Selector
	logger    *zap.Logger
}

func NewBeliefService(beliefs domain.BeliefStore, conflicts domain.ConflictStore, backend similarity.Backend, search *similarity.Selector, logger *zap.Logger) *BeliefService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BeliefService{
		beliefs:   beliefs,
		conflicts: conflicts,
		backend:   backend,
		search:    search,
		logger:    logger,
	}
}

func (s *BeliefService) Get(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	return s.beliefs.GetByID(ctx, id)
}

func (s *BeliefService) ListByAgent(ctx context.Context, agentID string, includeInactive bool, limit int) ([]domain.Belief, error) {
	if agentID == "" {
		return nil, domain.E(domain.KindInvalidInput, "agent_id is required")
	}
	return s.beliefs.GetByAgent(ctx, agentID, includeInactive, limit)
}

// Search ranks the agent's beliefs against a query statement.
func (s *BeliefService) Search(ctx context.Context, q similarity.Query) ([]domain.BeliefWithScore, error) {
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
		return []domain.BeliefWithScore{}, nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	scores := make(map[uuid.UUID]float32, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}

	beliefs, err := s.beliefs.GetMany(ctx, ids)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load matched beliefs", err)
	}

	results := make([]domain.BeliefWithScore, 0, len(beliefs))
	for _, b := range beliefs {
		results = append(results, domain.BeliefWithScore{Belief: b, Score: scores[b.ID]})
	}
	return results, nil
}

func (s *BeliefService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.beliefs.Deactivate(ctx, id)
}

// DeprecatedBeliefIDs lists the agent's beliefs currently targeted by a
// deprecating edge.
func (s *BeliefService) DeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	if agentID == "" {
		return nil, domain.E(domain.KindInvalidInput, "agent_id is required")
	}
	return s.beliefs.FindDeprecatedBeliefIDs(ctx, agentID)
}

func (s *BeliefService) ConflictsForBelief(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefConflict, error) {
	return s.conflicts.GetByBelief(ctx, beliefID)
}

func (s *BeliefService) UnresolvedConflicts(ctx context.Context, agentID string, limit int) ([]domain.BeliefConflict, error) {
	if agentID == "" {
		return nil, domain.E(domain.KindInvalidInput, "agent_id is required")
	}
	return s.conflicts.ListUnresolved(ctx, agentID, limit)
}

// ResolveConflict closes a pending conflict with an operator-chosen
// resolution. This records the decision only; applying belief mutations
// for a manual resolution stays with the operator.
func (s *BeliefService) ResolveConflict(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	if !domain.ValidConflictResolution(string(resolution)) {
		return domain.E(domain.KindInvalidInput, "unknown conflict resolution: "+string(resolution))
	}
	return s.conflicts.Resolve(ctx, id, resolution, details, confidence)
}
