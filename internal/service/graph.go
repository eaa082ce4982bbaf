package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// GraphService runs traversals over the belief graph. The edge list in
// the relationship store is the single source of truth; adjacency is
// computed per query, never cached.
type GraphService struct {
	beliefs       domain.BeliefStore
	relationships domain.RelationshipStore
	logger        *zap.Logger
}

func NewGraphService(beliefs domain.BeliefStore, relationships domain.RelationshipStore, logger *zap.Logger) *GraphService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphService{
		beliefs:       beliefs,
		relationships: relationships,
		logger:        logger,
	}
}

// CreateRelationship validates and persists an edge. Both endpoints must
// exist and belong to the edge's agent.
func (s *GraphService) CreateRelationship(ctx context.Context, r *domain.BeliefRelationship) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Strength == 0 {
		r.Strength = 0.5
	}
	r.Strength = domain.ClampConfidence(r.Strength)

	if err := r.Validate(); err != nil {
		return err
	}

	endpoints, err := s.beliefs.GetMany(ctx, []uuid.UUID{r.SourceBeliefID, r.TargetBeliefID})
	if err != nil {
		return domain.WrapErr(domain.KindStorage, "load relationship endpoints", err)
	}
	if len(endpoints) != 2 {
		return domain.E(domain.KindNotFound, "relationship endpoint belief does not exist")
	}
	for _, b := range endpoints {
		if b.AgentID != r.AgentID {
			return domain.E(domain.KindInvalidInput, "relationship endpoints must belong to the relationship's agent")
		}
	}

	if err := s.relationships.Create(ctx, r); err != nil {
		return domain.WrapErr(domain.KindStorage, "create relationship", err)
	}
	return nil
}

// FindDeprecationChain follows incoming deprecating edges from the belief
// to whatever ultimately replaced it. The first element is the belief
// itself; later elements are newer. Cycles terminate via the visited set.
func (s *GraphService) FindDeprecationChain(ctx context.Context, beliefID uuid.UUID) ([]domain.Belief, error) {
	start, err := s.beliefs.GetByID(ctx, beliefID)
	if err != nil {
		return nil, err
	}

	chain := []domain.Belief{*start}
	visited := map[uuid.UUID]bool{start.ID: true}
	current := start.ID

	for {
		superseding, err := s.beliefs.FindSupersedingBeliefIDs(ctx, start.AgentID, current)
		if err != nil {
			return nil, domain.WrapErr(domain.KindStorage, "find superseding beliefs", err)
		}

		var next uuid.UUID
		found := false
		for _, id := range superseding {
			if !visited[id] {
				next = id
				found = true
				break
			}
		}
		if !found {
			return chain, nil
		}

		visited[next] = true
		b, err := s.beliefs.GetByID(ctx, next)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				s.logger.Warn("deprecation chain hit dangling edge",
					zap.String("belief_id", next.String()))
				return chain, nil
			}
			return nil, err
		}
		chain = append(chain, *b)
		current = next
	}
}

// FindRelated walks active, in-force edges in both directions up to depth
// hops and returns the reachable beliefs, excluding the start.
func (s *GraphService) FindRelated(ctx context.Context, beliefID uuid.UUID, depth int) ([]domain.Belief, error) {
	if depth <= 0 {
		depth = 1
	}

	if _, err := s.beliefs.GetByID(ctx, beliefID); err != nil {
		return nil, err
	}

	now := time.Now()
	visited := map[uuid.UUID]bool{beliefID: true}
	frontier := []uuid.UUID{beliefID}
	var relatedIDs []uuid.UUID

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []uuid.UUID
		for _, id := range frontier {
			neighbors, err := s.neighbors(ctx, id, now)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				relatedIDs = append(relatedIDs, n)
				next = append(next, n)
			}
		}
		frontier = next
	}

	if len(relatedIDs) == 0 {
		return nil, nil
	}
	beliefs, err := s.beliefs.GetMany(ctx, relatedIDs)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load related beliefs", err)
	}
	return beliefs, nil
}

func (s *GraphService) neighbors(ctx context.Context, beliefID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	outgoing, err := s.relationships.GetBySource(ctx, beliefID)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load outgoing edges", err)
	}
	incoming, err := s.relationships.GetByTarget(ctx, beliefID)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load incoming edges", err)
	}

	var ids []uuid.UUID
	for _, r := range outgoing {
		if r.Active && r.EffectiveAt(at) {
			ids = append(ids, r.TargetBeliefID)
		}
	}
	for _, r := range incoming {
		if r.Active && r.EffectiveAt(at) {
			ids = append(ids, r.SourceBeliefID)
		}
	}
	return ids, nil
}

// FindStronglyConnectedClusters groups the agent's beliefs by union-find
// over active edges with strength >= threshold. Only clusters of two or
// more beliefs are returned, each sorted by id, clusters sorted by their
// first id.
func (s *GraphService) FindStronglyConnectedClusters(ctx context.Context, agentID string, strengthThreshold float32) ([][]uuid.UUID, error) {
	edges, err := s.relationships.GetByAgent(ctx, agentID, true)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load agent edges", err)
	}

	now := time.Now()
	parent := map[uuid.UUID]uuid.UUID{}

	var find func(uuid.UUID) uuid.UUID
	find = func(id uuid.UUID) uuid.UUID {
		p, ok := parent[id]
		if !ok {
			parent[id] = id
			return id
		}
		if p == id {
			return id
		}
		root := find(p)
		parent[id] = root
		return root
	}
	union := func(a, b uuid.UUID) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, r := range edges {
		if r.Strength < strengthThreshold || !r.EffectiveAt(now) {
			continue
		}
		union(r.SourceBeliefID, r.TargetBeliefID)
	}

	groups := map[uuid.UUID][]uuid.UUID{}
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	var clusters [][]uuid.UUID
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].String() < members[j].String()
		})
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i][0].String() < clusters[j][0].String()
	})
	return clusters, nil
}

// GraphValidationReport lists structural defects found in an agent's graph.
type GraphValidationReport struct {
	Valid              bool        `json:"valid"`
	OrphanEdges        []uuid.UUID `json:"orphan_edges,omitempty"`
	SelfLoops          []uuid.UUID `json:"self_loops,omitempty"`
	TemporalInversions []uuid.UUID `json:"temporal_inversions,omitempty"`
}

// ValidateStructure checks every edge of the agent for dangling
// endpoints, self-loops, and effective windows that end before they start.
func (s *GraphService) ValidateStructure(ctx context.Context, agentID string) (*GraphValidationReport, error) {
	edges, err := s.relationships.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "load agent edges", err)
	}

	idSet := map[uuid.UUID]bool{}
	var endpointIDs []uuid.UUID
	for _, r := range edges {
		for _, id := range []uuid.UUID{r.SourceBeliefID, r.TargetBeliefID} {
			if !idSet[id] {
				idSet[id] = true
				endpointIDs = append(endpointIDs, id)
			}
		}
	}

	existing := map[uuid.UUID]bool{}
	if len(endpointIDs) > 0 {
		beliefs, err := s.beliefs.GetMany(ctx, endpointIDs)
		if err != nil {
			return nil, domain.WrapErr(domain.KindStorage, "load endpoint beliefs", err)
		}
		for _, b := range beliefs {
			existing[b.ID] = true
		}
	}

	report := &GraphValidationReport{}
	for _, r := range edges {
		if r.SourceBeliefID == r.TargetBeliefID {
			report.SelfLoops = append(report.SelfLoops, r.ID)
		}
		if !existing[r.SourceBeliefID] || !existing[r.TargetBeliefID] {
			report.OrphanEdges = append(report.OrphanEdges, r.ID)
		}
		if r.EffectiveFrom != nil && r.EffectiveUntil != nil && r.EffectiveFrom.After(*r.EffectiveUntil) {
			report.TemporalInversions = append(report.TemporalInversions, r.ID)
		}
	}
	report.Valid = len(report.OrphanEdges) == 0 && len(report.SelfLoops) == 0 && len(report.TemporalInversions) == 0
	return report, nil
}
