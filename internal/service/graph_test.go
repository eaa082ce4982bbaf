package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
)

type graphFixture struct {
	beliefs       *mockBeliefStoreForBRCA
	relationships *mockRelationshipStoreForBRCA
	svc           *GraphService
}

func newGraphFixture() *graphFixture {
	beliefs := newMockBeliefStoreForBRCA()
	beliefs.superseding = make(map[uuid.UUID][]uuid.UUID)
	relationships := &mockRelationshipStoreForBRCA{}
	return &graphFixture{
		beliefs:       beliefs,
		relationships: relationships,
		svc:           NewGraphService(beliefs, relationships, zap.NewNop()),
	}
}

func (f *graphFixture) edge(source, target uuid.UUID, t domain.RelationshipType, strength float32) *domain.BeliefRelationship {
	r := &domain.BeliefRelationship{
		ID:             uuid.New(),
		SourceBeliefID: source,
		TargetBeliefID: target,
		AgentID:        "agent-1",
		Type:           t,
		Strength:       strength,
		Active:         true,
	}
	f.relationships.created = append(f.relationships.created, *r)
	return r
}

func TestGraphService_CreateRelationship(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "coffee helps focus", 0.8)
	b := f.beliefs.seed("agent-1", "mornings are productive", 0.7)

	r := &domain.BeliefRelationship{
		SourceBeliefID: a.ID,
		TargetBeliefID: b.ID,
		AgentID:        "agent-1",
		Type:           domain.RelationSupports,
	}
	if err := f.svc.CreateRelationship(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Error("id should be assigned")
	}
	if r.Strength != 0.5 {
		t.Errorf("strength = %v, want default 0.5", r.Strength)
	}
	if len(f.relationships.created) != 1 {
		t.Errorf("created = %d, want 1", len(f.relationships.created))
	}
}

func TestGraphService_CreateRelationship_Rejections(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "coffee helps focus", 0.8)
	b := f.beliefs.seed("agent-1", "mornings are productive", 0.7)
	foreign := f.beliefs.seed("agent-2", "tea is better", 0.7)

	selfLoop := &domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: a.ID,
		AgentID: "agent-1", Type: domain.RelationSupports,
	}
	if err := f.svc.CreateRelationship(context.Background(), selfLoop); !domain.IsKind(err, domain.KindInvalidInput) {
		t.Errorf("self-loop: got %v, want invalid_input", err)
	}

	badType := &domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: b.ID,
		AgentID: "agent-1", Type: "FEELS_LIKE",
	}
	if err := f.svc.CreateRelationship(context.Background(), badType); !domain.IsKind(err, domain.KindInvalidInput) {
		t.Errorf("bad type: got %v, want invalid_input", err)
	}

	missing := &domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: uuid.New(),
		AgentID: "agent-1", Type: domain.RelationSupports,
	}
	if err := f.svc.CreateRelationship(context.Background(), missing); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("missing endpoint: got %v, want not_found", err)
	}

	crossAgent := &domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: foreign.ID,
		AgentID: "agent-1", Type: domain.RelationSupports,
	}
	if err := f.svc.CreateRelationship(context.Background(), crossAgent); !domain.IsKind(err, domain.KindInvalidInput) {
		t.Errorf("cross-agent: got %v, want invalid_input", err)
	}

	if len(f.relationships.created) != 0 {
		t.Errorf("created = %d, want 0", len(f.relationships.created))
	}
}

func TestGraphService_DeprecationChain(t *testing.T) {
	f := newGraphFixture()
	oldest := f.beliefs.seed("agent-1", "user works at acme", 0.4)
	middle := f.beliefs.seed("agent-1", "user works at globex", 0.6)
	newest := f.beliefs.seed("agent-1", "user works at initech", 0.9)
	f.beliefs.superseding[oldest.ID] = []uuid.UUID{middle.ID}
	f.beliefs.superseding[middle.ID] = []uuid.UUID{newest.ID}

	chain, err := f.svc.FindDeprecationChain(context.Background(), oldest.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	if chain[0].ID != oldest.ID || chain[1].ID != middle.ID || chain[2].ID != newest.ID {
		t.Error("chain should run oldest to newest")
	}
}

func TestGraphService_DeprecationChainCycleTerminates(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "a", 0.5)
	b := f.beliefs.seed("agent-1", "b", 0.5)
	f.beliefs.superseding[a.ID] = []uuid.UUID{b.ID}
	f.beliefs.superseding[b.ID] = []uuid.UUID{a.ID}

	chain, err := f.svc.FindDeprecationChain(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 {
		t.Errorf("chain length = %d, want 2 (cycle must terminate)", len(chain))
	}
}

func TestGraphService_DeprecationChainUnknownBelief(t *testing.T) {
	f := newGraphFixture()
	_, err := f.svc.FindDeprecationChain(context.Background(), uuid.New())
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("got %v, want not_found", err)
	}
}

func TestGraphService_FindRelated(t *testing.T) {
	f := newGraphFixture()
	center := f.beliefs.seed("agent-1", "center", 0.5)
	out := f.beliefs.seed("agent-1", "outgoing neighbor", 0.5)
	in := f.beliefs.seed("agent-1", "incoming neighbor", 0.5)
	twoHops := f.beliefs.seed("agent-1", "two hops away", 0.5)
	f.edge(center.ID, out.ID, domain.RelationSupports, 0.8)
	f.edge(in.ID, center.ID, domain.RelationImplies, 0.8)
	f.edge(out.ID, twoHops.ID, domain.RelationRelatesTo, 0.8)

	related, err := f.svc.FindRelated(context.Background(), center.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("depth 1: len = %d, want 2", len(related))
	}

	related, err = f.svc.FindRelated(context.Background(), center.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(related) != 3 {
		t.Errorf("depth 2: len = %d, want 3", len(related))
	}
	for _, b := range related {
		if b.ID == center.ID {
			t.Error("start belief must be excluded")
		}
	}
}

func TestGraphService_FindRelated_SkipsInactiveAndExpiredEdges(t *testing.T) {
	f := newGraphFixture()
	center := f.beliefs.seed("agent-1", "center", 0.5)
	inactive := f.beliefs.seed("agent-1", "behind inactive edge", 0.5)
	expired := f.beliefs.seed("agent-1", "behind expired edge", 0.5)

	r := f.edge(center.ID, inactive.ID, domain.RelationSupports, 0.8)
	for i := range f.relationships.created {
		if f.relationships.created[i].ID == r.ID {
			f.relationships.created[i].Active = false
		}
	}
	past := time.Now().Add(-time.Hour)
	e := f.edge(center.ID, expired.ID, domain.RelationSupersedes, 0.8)
	for i := range f.relationships.created {
		if f.relationships.created[i].ID == e.ID {
			f.relationships.created[i].EffectiveUntil = &past
		}
	}

	related, err := f.svc.FindRelated(context.Background(), center.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(related) != 0 {
		t.Errorf("len = %d, want 0", len(related))
	}
}

func TestGraphService_FindStronglyConnectedClusters(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "a", 0.5)
	b := f.beliefs.seed("agent-1", "b", 0.5)
	c := f.beliefs.seed("agent-1", "c", 0.5)
	d := f.beliefs.seed("agent-1", "d", 0.5)
	e := f.beliefs.seed("agent-1", "e", 0.5)

	f.edge(a.ID, b.ID, domain.RelationSupports, 0.9)
	f.edge(b.ID, c.ID, domain.RelationSupports, 0.8)
	// Weak edge: d stays outside the cluster.
	f.edge(c.ID, d.ID, domain.RelationSupports, 0.3)
	_ = e // isolated

	clusters, err := f.svc.FindStronglyConnectedClusters(context.Background(), "agent-1", 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	if len(clusters[0]) != 3 {
		t.Errorf("cluster size = %d, want 3", len(clusters[0]))
	}
	for i := 1; i < len(clusters[0]); i++ {
		if clusters[0][i-1].String() > clusters[0][i].String() {
			t.Error("cluster members should be sorted by id")
		}
	}
}

func TestGraphService_ValidateStructure(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "a", 0.5)
	b := f.beliefs.seed("agent-1", "b", 0.5)

	f.edge(a.ID, b.ID, domain.RelationSupports, 0.8)
	orphan := f.edge(a.ID, uuid.New(), domain.RelationSupports, 0.8)
	selfLoop := f.edge(a.ID, a.ID, domain.RelationSupports, 0.8)

	from := time.Now()
	until := from.Add(-time.Hour)
	inverted := f.edge(b.ID, a.ID, domain.RelationSupersedes, 0.8)
	for i := range f.relationships.created {
		if f.relationships.created[i].ID == inverted.ID {
			f.relationships.created[i].EffectiveFrom = &from
			f.relationships.created[i].EffectiveUntil = &until
		}
	}

	report, err := f.svc.ValidateStructure(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Valid {
		t.Error("report should flag defects")
	}
	if len(report.OrphanEdges) != 1 || report.OrphanEdges[0] != orphan.ID {
		t.Errorf("orphan edges = %v, want [%s]", report.OrphanEdges, orphan.ID)
	}
	if len(report.SelfLoops) != 1 || report.SelfLoops[0] != selfLoop.ID {
		t.Errorf("self loops = %v, want [%s]", report.SelfLoops, selfLoop.ID)
	}
	if len(report.TemporalInversions) != 1 || report.TemporalInversions[0] != inverted.ID {
		t.Errorf("temporal inversions = %v, want [%s]", report.TemporalInversions, inverted.ID)
	}
}

func TestGraphService_ValidateStructure_CleanGraph(t *testing.T) {
	f := newGraphFixture()
	a := f.beliefs.seed("agent-1", "a", 0.5)
	b := f.beliefs.seed("agent-1", "b", 0.5)
	f.edge(a.ID, b.ID, domain.RelationSupports, 0.8)

	report, err := f.svc.ValidateStructure(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Valid {
		t.Errorf("expected clean report, got %+v", report)
	}
}
