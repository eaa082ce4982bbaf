package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/llm"
	"github.com/Harshitk-cp/credo/internal/similarity"
	"github.com/Harshitk-cp/credo/internal/store"
)

type mockBeliefStoreForBRCA struct {
	mu      sync.Mutex
	beliefs map[uuid.UUID]*domain.Belief

	createCalls        int
	reinforcementCalls int
	confidenceCalls    int
	deactivateCalls    int

	// forcedConflicts makes the next N updates fail with a version conflict.
	forcedConflicts int

	// superseding maps a belief to the beliefs that replaced it.
	superseding map[uuid.UUID][]uuid.UUID
}

func newMockBeliefStoreForBRCA() *mockBeliefStoreForBRCA {
	return &mockBeliefStoreForBRCA{beliefs: make(map[uuid.UUID]*domain.Belief)}
}

func (m *mockBeliefStoreForBRCA) seed(agentID, statement string, confidence float32) *domain.Belief {
	b := &domain.Belief{
		ID:                 uuid.New(),
		AgentID:            agentID,
		Statement:          statement,
		Confidence:         confidence,
		Active:             true,
		ReinforcementCount: 1,
		CreatedAt:          time.Now().Add(-time.Hour),
		LastUpdated:        time.Now().Add(-time.Hour),
		Version:            1,
	}
	m.beliefs[b.ID] = b
	return b
}

func (m *mockBeliefStoreForBRCA) get(id uuid.UUID) *domain.Belief {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beliefs[id]
}

func (m *mockBeliefStoreForBRCA) Create(ctx context.Context, b *domain.Belief) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	copied := *b
	m.beliefs[b.ID] = &copied
	return nil
}

func (m *mockBeliefStoreForBRCA) CreateBatch(ctx context.Context, beliefs []*domain.Belief) error {
	for _, b := range beliefs {
		if err := m.Create(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockBeliefStoreForBRCA) GetByID(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beliefs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *mockBeliefStoreForBRCA) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Belief
	for _, id := range ids {
		if b, ok := m.beliefs[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBeliefStoreForBRCA) GetByAgent(ctx context.Context, agentID string, includeInactive bool, limit int) ([]domain.Belief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Belief
	for _, b := range m.beliefs {
		if b.AgentID == agentID && (includeInactive || b.Active) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBeliefStoreForBRCA) UpdateReinforcement(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32, reinforcementCount int, evidenceMemoryIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reinforcementCalls++
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		return store.ErrVersionConflict
	}
	b, ok := m.beliefs[id]
	if !ok {
		return store.ErrNotFound
	}
	if b.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	b.Confidence = confidence
	b.ReinforcementCount = reinforcementCount
	b.EvidenceMemoryIDs = evidenceMemoryIDs
	b.Version++
	b.LastUpdated = time.Now()
	return nil
}

func (m *mockBeliefStoreForBRCA) UpdateConfidence(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidenceCalls++
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		return store.ErrVersionConflict
	}
	b, ok := m.beliefs[id]
	if !ok {
		return store.ErrNotFound
	}
	if b.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	b.Confidence = confidence
	b.Version++
	b.LastUpdated = time.Now()
	return nil
}

func (m *mockBeliefStoreForBRCA) Deactivate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivateCalls++
	b, ok := m.beliefs[id]
	if !ok {
		return store.ErrNotFound
	}
	b.Active = false
	b.LastUpdated = time.Now()
	return nil
}

func (m *mockBeliefStoreForBRCA) FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockBeliefStoreForBRCA) FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.superseding[beliefID], nil
}

func (m *mockBeliefStoreForBRCA) HasNativeVector(ctx context.Context) bool { return false }

func (m *mockBeliefStoreForBRCA) NativeSimilar(ctx context.Context, q similarity.Query) ([]similarity.Match, error) {
	return nil, nil
}

func (m *mockBeliefStoreForBRCA) ListCandidates(ctx context.Context, agentID string, includeInactive, withEmbeddings bool) ([]similarity.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []similarity.Candidate
	for _, b := range m.beliefs {
		if b.AgentID != agentID || (!includeInactive && !b.Active) {
			continue
		}
		out = append(out, beliefCandidate(b))
	}
	return out, nil
}

func (m *mockBeliefStoreForBRCA) KeywordCandidates(ctx context.Context, agentID string, keywords []string, includeInactive bool, limit int) ([]similarity.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []similarity.Candidate
	for _, b := range m.beliefs {
		if b.AgentID != agentID || (!includeInactive && !b.Active) {
			continue
		}
		lower := strings.ToLower(b.Statement)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, beliefCandidate(b))
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func beliefCandidate(b *domain.Belief) similarity.Candidate {
	return similarity.Candidate{
		ID:         b.ID,
		AgentID:    b.AgentID,
		Content:    b.Statement,
		Confidence: b.Confidence,
		CreatedAt:  b.CreatedAt,
		Embedding:  b.Embedding,
	}
}

type mockConflictStoreForBRCA struct {
	mu        sync.Mutex
	conflicts []domain.BeliefConflict
}

func (m *mockConflictStoreForBRCA) Create(ctx context.Context, c *domain.BeliefConflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = append(m.conflicts, *c)
	return nil
}

func (m *mockConflictStoreForBRCA) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.conflicts {
		if m.conflicts[i].ID == id {
			c := m.conflicts[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockConflictStoreForBRCA) GetByBelief(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefConflict
	for _, c := range m.conflicts {
		if c.BeliefID == beliefID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockConflictStoreForBRCA) ListUnresolved(ctx context.Context, agentID string, limit int) ([]domain.BeliefConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefConflict
	for _, c := range m.conflicts {
		if !c.Resolved && (agentID == "" || c.AgentID == agentID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockConflictStoreForBRCA) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.conflicts {
		if m.conflicts[i].ID == id {
			m.conflicts[i].MarkResolved(resolution, details, confidence, time.Now())
			return nil
		}
	}
	return store.ErrNotFound
}

type mockRelationshipStoreForBRCA struct {
	mu      sync.Mutex
	created []domain.BeliefRelationship
	closed  []uuid.UUID
}

func (m *mockRelationshipStoreForBRCA) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Active = true
	r.CreatedAt = time.Now()
	m.created = append(m.created, *r)
	return nil
}

func (m *mockRelationshipStoreForBRCA) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.created {
		if m.created[i].ID == id {
			r := m.created[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockRelationshipStoreForBRCA) GetBySource(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.created {
		if r.SourceBeliefID == beliefID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRelationshipStoreForBRCA) GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.created {
		if r.TargetBeliefID == beliefID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRelationshipStoreForBRCA) GetByAgent(ctx context.Context, agentID string, activeOnly bool) ([]domain.BeliefRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BeliefRelationship
	for _, r := range m.created {
		if r.AgentID == agentID && (!activeOnly || r.Active) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRelationshipStoreForBRCA) Deactivate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.created {
		if m.created[i].ID == id {
			m.created[i].Active = false
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockRelationshipStoreForBRCA) CloseEffective(ctx context.Context, sourceBeliefID uuid.UUID, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, sourceBeliefID)
	return nil
}

type brcaFixture struct {
	beliefs       *mockBeliefStoreForBRCA
	conflicts     *mockConflictStoreForBRCA
	relationships *mockRelationshipStoreForBRCA
	extractor     *llm.MockClient
	analyzer      *Analyzer
}

func testBRCAConfig(resolution domain.ConflictResolution) BRCAConfig {
	return BRCAConfig{
		ReinforcementAlpha:    0.15,
		WeakeningBeta:         0.3,
		DeactivationThreshold: 0.2,
		SimilarityThreshold:   0.2,
		ConflictThreshold:     0.3,
		DefaultResolution:     resolution,
		TopK:                  10,
	}
}

func newBRCAFixture(resolution domain.ConflictResolution, withSynthesizer bool) *brcaFixture {
	logger := zap.NewNop()
	beliefs := newMockBeliefStoreForBRCA()
	conflicts := &mockConflictStoreForBRCA{}
	relationships := &mockRelationshipStoreForBRCA{}
	extractor := llm.NewMockClient()

	var synthesizer domain.MergeSynthesizer
	if withSynthesizer {
		synthesizer = extractor
	}

	analyzer := NewAnalyzer(
		beliefs, conflicts,
		NewGraphService(beliefs, relationships, logger),
		similarity.NewSelector(similarity.ModeKeyword, nil, logger),
		beliefs,
		extractor, synthesizer, nil,
		testBRCAConfig(resolution), logger,
	)
	return &brcaFixture{
		beliefs:       beliefs,
		conflicts:     conflicts,
		relationships: relationships,
		extractor:     extractor,
		analyzer:      analyzer,
	}
}

func testMemory(agentID, content string) *domain.MemoryRecord {
	return &domain.MemoryRecord{
		ID:        uuid.New(),
		AgentID:   agentID,
		Content:   content,
		Category:  domain.NewCategoryLabel("preference", "tools", nil, 0.8),
		CreatedAt: time.Now(),
		Version:   1,
	}
}

func proposal(statement string, confidence float32, polarity domain.Polarity) domain.BeliefProposal {
	return domain.BeliefProposal{
		Statement:  statement,
		Confidence: confidence,
		Polarity:   polarity,
	}
}

func approx(t *testing.T, got, want float32, label string) {
	t.Helper()
	if got < want-0.001 || got > want+0.001 {
		t.Errorf("%s = %v, want ~%v", label, got, want)
	}
}

// slowExtractor never answers; it holds the call until the context expires.
type slowExtractor struct{}

func (slowExtractor) ExtractBeliefs(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnalyzer_ExtractDeadlineApplies(t *testing.T) {
	logger := zap.NewNop()
	beliefs := newMockBeliefStoreForBRCA()
	cfg := testBRCAConfig(domain.ResolutionMarkUncertain)
	cfg.ExtractTimeout = 20 * time.Millisecond

	analyzer := NewAnalyzer(
		beliefs, &mockConflictStoreForBRCA{},
		NewGraphService(beliefs, &mockRelationshipStoreForBRCA{}, logger),
		similarity.NewSelector(similarity.ModeKeyword, nil, logger),
		beliefs,
		slowExtractor{}, nil, nil,
		cfg, logger,
	)

	start := time.Now()
	_, err := analyzer.Analyze(context.Background(), testMemory("agent-1", "I prefer Python for scripting."), false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded in the chain", err)
	}
	// Without a per-call deadline this would block forever.
	if time.Since(start) > 2*time.Second {
		t.Error("extract deadline was not applied")
	}
}

func TestAnalyzer_NewBeliefFromFreshMemory(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 0.9, domain.PolarityPositive),
	}
	m := testMemory("agent-1", "I prefer Python for scripting.")

	result, err := f.analyzer.Analyze(context.Background(), m, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.NewBeliefs) != 1 {
		t.Fatalf("new beliefs = %d, want 1", len(result.NewBeliefs))
	}
	b := result.NewBeliefs[0]
	approx(t, b.Confidence, 0.9, "confidence")
	approx(t, result.OverallConfidence, 0.9, "overall confidence")
	if b.ReinforcementCount != 1 {
		t.Errorf("reinforcement count = %d, want 1", b.ReinforcementCount)
	}
	if !b.Active {
		t.Error("new belief should be active")
	}
	if len(b.EvidenceMemoryIDs) != 1 || b.EvidenceMemoryIDs[0] != m.ID {
		t.Errorf("evidence = %v, want [%s]", b.EvidenceMemoryIDs, m.ID)
	}
	if f.beliefs.createCalls != 1 {
		t.Errorf("create calls = %d, want 1", f.beliefs.createCalls)
	}
	if len(result.Reinforced) != 0 || len(result.Weakened) != 0 || len(result.Conflicts) != 0 {
		t.Error("fresh memory should only create")
	}
}

func TestAnalyzer_ReinforcesMatchingBelief(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.6)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 0.9, domain.PolarityPositive),
	}
	m := testMemory("agent-1", "Still prefer Python for scripting.")

	result, err := f.analyzer.Analyze(context.Background(), m, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Reinforced) != 1 {
		t.Fatalf("reinforced = %d, want 1", len(result.Reinforced))
	}
	// 0.6 + 0.15 * 0.9
	approx(t, result.Reinforced[0].Confidence, 0.735, "reinforced confidence")
	if result.Reinforced[0].ReinforcementCount != 2 {
		t.Errorf("reinforcement count = %d, want 2", result.Reinforced[0].ReinforcementCount)
	}

	stored := f.beliefs.get(existing.ID)
	approx(t, stored.Confidence, 0.735, "stored confidence")
	if stored.ReinforcementCount != 2 {
		t.Errorf("stored reinforcement count = %d, want 2", stored.ReinforcementCount)
	}
	if stored.Version != 2 {
		t.Errorf("stored version = %d, want 2", stored.Version)
	}
	if !stored.HasEvidence(m.ID) {
		t.Error("memory should be recorded as evidence")
	}
	if f.beliefs.createCalls != 0 {
		t.Error("reinforcement should not create a new belief")
	}
	if len(result.NewBeliefs) != 0 {
		t.Errorf("new beliefs = %d, want 0", len(result.NewBeliefs))
	}
}

func TestAnalyzer_ReinforcementClampsAtOne(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.95)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 1.0, domain.PolarityPositive),
	}

	_, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Python again."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.beliefs.get(existing.ID).Confidence; got != 1.0 {
		t.Errorf("confidence = %v, want clamp to 1.0", got)
	}
}

func TestAnalyzer_TakeNewWeakensAndSupersedes(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionTakeNew, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}
	m := testMemory("agent-1", "I don't prefer Python anymore.")

	result, err := f.analyzer.Analyze(context.Background(), m, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Weakened) != 1 {
		t.Fatalf("weakened = %d, want 1", len(result.Weakened))
	}
	// 0.5 - 0.3 * 0.9 = 0.23, above the deactivation threshold
	approx(t, result.Weakened[0].Confidence, 0.23, "weakened confidence")
	stored := f.beliefs.get(existing.ID)
	approx(t, stored.Confidence, 0.23, "stored confidence")
	if !stored.Active {
		t.Error("belief above the deactivation threshold should stay active")
	}

	if len(result.NewBeliefs) != 1 {
		t.Fatalf("new beliefs = %d, want 1", len(result.NewBeliefs))
	}
	newID := result.NewBeliefs[0].ID

	if len(f.relationships.created) != 1 {
		t.Fatalf("relationships = %d, want 1", len(f.relationships.created))
	}
	edge := f.relationships.created[0]
	if edge.Type != domain.RelationSupersedes {
		t.Errorf("edge type = %s, want SUPERSEDES", edge.Type)
	}
	if edge.SourceBeliefID != newID || edge.TargetBeliefID != existing.ID {
		t.Error("edge should point from the new belief to the superseded one")
	}
	if edge.EffectiveFrom == nil {
		t.Error("superseding edge should carry effective_from")
	}

	if len(f.conflicts.conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(f.conflicts.conflicts))
	}
	c := f.conflicts.conflicts[0]
	if !c.Resolved || c.Resolution != domain.ResolutionTakeNew {
		t.Errorf("conflict resolution = %s (resolved=%v), want resolved TAKE_NEW", c.Resolution, c.Resolved)
	}
	// |0.5 - 0.9| = 0.4
	if c.Severity != domain.SeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", c.Severity)
	}
}

func TestAnalyzer_TakeNewDeactivatesBelowThreshold(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionTakeNew, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.3)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "No more Python."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.beliefs.get(existing.ID)
	// 0.3 - 0.27 = 0.03, below 0.2
	approx(t, stored.Confidence, 0.03, "stored confidence")
	if stored.Active {
		t.Error("belief below the deactivation threshold should be deactivated")
	}
	if result.Weakened[0].Active {
		t.Error("result should reflect the deactivation")
	}
}

func TestAnalyzer_KeepOldLeavesBeliefUntouched(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionKeepOld, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Not Python."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.beliefs.get(existing.ID)
	if stored.Confidence != 0.5 || stored.Version != 1 {
		t.Errorf("belief mutated: confidence=%v version=%d", stored.Confidence, stored.Version)
	}
	if len(result.NewBeliefs) != 0 {
		t.Error("KEEP_OLD should not create a belief")
	}
	if len(f.conflicts.conflicts) != 1 || !f.conflicts.conflicts[0].Resolved {
		t.Error("conflict should be recorded resolved")
	}
	if f.conflicts.conflicts[0].Resolution != domain.ResolutionKeepOld {
		t.Errorf("resolution = %s, want KEEP_OLD", f.conflicts.conflicts[0].Resolution)
	}
}

func TestAnalyzer_MarkUncertainWeakensBoth(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Maybe not Python."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Existing belief scaled by 0.8 but never deactivated.
	stored := f.beliefs.get(existing.ID)
	approx(t, stored.Confidence, 0.4, "stored confidence")
	if !stored.Active {
		t.Error("MARK_UNCERTAIN should not deactivate")
	}

	// New belief carries the proposal's scaled confidence.
	if len(result.NewBeliefs) != 1 {
		t.Fatalf("new beliefs = %d, want 1", len(result.NewBeliefs))
	}
	approx(t, result.NewBeliefs[0].Confidence, 0.72, "new belief confidence")

	if len(f.conflicts.conflicts) != 1 || f.conflicts.conflicts[0].Resolution != domain.ResolutionMarkUncertain {
		t.Error("conflict should be resolved MARK_UNCERTAIN")
	}
}

func TestAnalyzer_RequireManualReviewMutatesNothing(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionRequireManualReview, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Contradiction."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.beliefs.get(existing.ID)
	if stored.Confidence != 0.5 || stored.Version != 1 || !stored.Active {
		t.Error("belief should be untouched")
	}
	if f.beliefs.createCalls != 0 {
		t.Error("no belief should be created")
	}
	if len(f.relationships.created) != 0 {
		t.Error("no edge should be created")
	}
	if len(f.conflicts.conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(f.conflicts.conflicts))
	}
	if f.conflicts.conflicts[0].Resolved {
		t.Error("conflict should surface unresolved")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Resolved {
		t.Error("result should carry the unresolved conflict")
	}
}

func TestAnalyzer_MergeSynthesizesNewBelief(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMerge, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.SynthesizeMergeResponse = "user sometimes prefers python for scripting"
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Depends on the day."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.NewBeliefs) != 1 {
		t.Fatalf("new beliefs = %d, want 1", len(result.NewBeliefs))
	}
	if result.NewBeliefs[0].Statement != "user sometimes prefers python for scripting" {
		t.Errorf("statement = %q", result.NewBeliefs[0].Statement)
	}
	if len(f.extractor.SynthesizeMergeCalls) != 1 {
		t.Errorf("synthesize calls = %d, want 1", len(f.extractor.SynthesizeMergeCalls))
	}
	if len(f.relationships.created) != 1 || f.relationships.created[0].Type != domain.RelationReplaces {
		t.Error("expected a REPLACES edge")
	}
	if f.relationships.created[0].TargetBeliefID != existing.ID {
		t.Error("REPLACES edge should target the old belief")
	}
	if len(f.conflicts.conflicts) != 1 || f.conflicts.conflicts[0].Resolution != domain.ResolutionMerge {
		t.Error("conflict should be resolved MERGE")
	}
}

func TestAnalyzer_MergeFallsBackToKeepOldWithoutSynthesizer(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMerge, false)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Contradiction."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.beliefs.get(existing.ID)
	if stored.Confidence != 0.5 || stored.Version != 1 {
		t.Error("belief should be untouched")
	}
	if len(result.NewBeliefs) != 0 {
		t.Error("no belief should be created without a synthesizer")
	}
	if len(f.conflicts.conflicts) != 1 || f.conflicts.conflicts[0].Resolution != domain.ResolutionKeepOld {
		t.Error("conflict should degrade to KEEP_OLD")
	}
}

func TestAnalyzer_ArchiveOldDeactivatesAndClosesEdges(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionArchiveOld, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.5)
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user does not prefer python for scripting", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Moved on."), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.beliefs.get(existing.ID)
	if stored.Active {
		t.Error("archived belief should be inactive")
	}
	if len(f.relationships.closed) != 1 || f.relationships.closed[0] != existing.ID {
		t.Error("archived belief's outgoing edges should be closed")
	}
	if len(result.NewBeliefs) != 1 {
		t.Fatalf("new beliefs = %d, want 1", len(result.NewBeliefs))
	}
	if len(f.relationships.created) != 1 || f.relationships.created[0].Type != domain.RelationSupersedes {
		t.Error("expected a SUPERSEDES edge")
	}
	if len(f.conflicts.conflicts) != 1 || f.conflicts.conflicts[0].Resolution != domain.ResolutionArchiveOld {
		t.Error("conflict should be resolved ARCHIVE_OLD")
	}
}

func TestAnalyzer_DryRunWritesNothing(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionTakeNew, true)
	reinforced := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.6)
	opposed := f.beliefs.seed("agent-1", "user enjoys cold brew coffee", 0.5)

	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 0.9, domain.PolarityPositive),
		proposal("user does not enjoy cold brew coffee", 0.9, domain.PolarityNegative),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Mixed news."), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Projections are present...
	if len(result.Reinforced) != 1 {
		t.Fatalf("reinforced = %d, want 1", len(result.Reinforced))
	}
	approx(t, result.Reinforced[0].Confidence, 0.735, "projected reinforcement")
	if len(result.Weakened) != 1 || len(result.NewBeliefs) != 1 || len(result.Conflicts) != 1 {
		t.Errorf("projections: weakened=%d new=%d conflicts=%d, want 1 each",
			len(result.Weakened), len(result.NewBeliefs), len(result.Conflicts))
	}

	// ...but nothing was written.
	if f.beliefs.createCalls != 0 || f.beliefs.reinforcementCalls != 0 ||
		f.beliefs.confidenceCalls != 0 || f.beliefs.deactivateCalls != 0 {
		t.Error("dry run must not touch the belief store")
	}
	if len(f.conflicts.conflicts) != 0 {
		t.Error("dry run must not record conflicts")
	}
	if len(f.relationships.created) != 0 {
		t.Error("dry run must not create edges")
	}
	if f.beliefs.get(reinforced.ID).Confidence != 0.6 || f.beliefs.get(opposed.ID).Confidence != 0.5 {
		t.Error("stored beliefs must be unchanged")
	}
}

func TestAnalyzer_EmptyExtraction(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	f.extractor.ExtractResponse = []domain.BeliefProposal{}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "hm"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallConfidence != 1.0 {
		t.Errorf("overall confidence = %v, want 1.0 with no touched beliefs", result.OverallConfidence)
	}
	if f.beliefs.createCalls != 0 {
		t.Error("nothing should be written")
	}
}

func TestAnalyzer_ExtractorFailure(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	f.extractor.ExtractError = errors.New("model unreachable")

	_, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "anything"), false)
	if !domain.IsKind(err, domain.KindExtractionUnavailable) {
		t.Errorf("got %v, want extraction_unavailable", err)
	}
}

func TestAnalyzer_RetriesVersionConflict(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	existing := f.beliefs.seed("agent-1", "user prefers python for scripting", 0.6)
	f.beliefs.forcedConflicts = 1
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 0.9, domain.PolarityPositive),
	}

	result, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Python."), false)
	if err != nil {
		t.Fatalf("expected retry to absorb one version conflict, got: %v", err)
	}
	if len(result.Reinforced) != 1 {
		t.Fatalf("reinforced = %d, want 1", len(result.Reinforced))
	}
	if f.beliefs.reinforcementCalls != 2 {
		t.Errorf("update calls = %d, want 2 (one conflict, one success)", f.beliefs.reinforcementCalls)
	}
	approx(t, f.beliefs.get(existing.ID).Confidence, 0.735, "stored confidence")
}

func TestAnalyzer_ContentionExhaustsRetries(t *testing.T) {
	f := newBRCAFixture(domain.ResolutionMarkUncertain, true)
	f.beliefs.seed("agent-1", "user prefers python for scripting", 0.6)
	f.beliefs.forcedConflicts = 10
	f.extractor.ExtractResponse = []domain.BeliefProposal{
		proposal("user prefers python for scripting", 0.9, domain.PolarityPositive),
	}

	_, err := f.analyzer.Analyze(context.Background(), testMemory("agent-1", "Python."), false)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Errorf("got %v, want conflict after exhausted retries", err)
	}
	if f.beliefs.reinforcementCalls != 3 {
		t.Errorf("update calls = %d, want 3", f.beliefs.reinforcementCalls)
	}
}

func TestOverallConfidence(t *testing.T) {
	result := &domain.BeliefUpdateResult{
		Reinforced: []domain.Belief{{Confidence: 0.8}},
		Weakened:   []domain.Belief{{Confidence: 0.2}},
		NewBeliefs: []domain.Belief{{Confidence: 0.5}},
	}
	approx(t, overallConfidence(result), 0.5, "overall confidence")

	if overallConfidence(&domain.BeliefUpdateResult{}) != 1.0 {
		t.Error("empty result should report 1.0")
	}
}
