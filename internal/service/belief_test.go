package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

func newBeliefService(beliefs *mockBeliefStoreForBRCA, conflicts *mockConflictStoreForBRCA) *BeliefService {
	selector := similarity.NewSelector(similarity.ModeKeyword, nil, zap.NewNop())
	return NewBeliefService(beliefs, conflicts, beliefs, selector, zap.NewNop())
}

func TestBeliefService_ListByAgent(t *testing.T) {
	beliefs := newMockBeliefStoreForBRCA()
	beliefs.seed("agent-1", "user prefers python", 0.8)
	inactive := beliefs.seed("agent-1", "user works at acme", 0.3)
	inactive.Active = false
	svc := newBeliefService(beliefs, &mockConflictStoreForBRCA{})

	active, err := svc.ListByAgent(context.Background(), "agent-1", false, 10)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := svc.ListByAgent(context.Background(), "agent-1", true, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListByAgent(context.Background(), "", false, 10)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestBeliefService_Search(t *testing.T) {
	beliefs := newMockBeliefStoreForBRCA()
	match := beliefs.seed("agent-1", "user prefers python scripting", 0.8)
	beliefs.seed("agent-1", "mornings are productive", 0.8)
	svc := newBeliefService(beliefs, &mockConflictStoreForBRCA{})

	results, err := svc.Search(context.Background(), similarity.Query{
		Text:    "user prefers python",
		AgentID: "agent-1",
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, match.ID, results[0].ID)
	assert.Greater(t, results[0].Score, float32(0))
}

func TestBeliefService_Deactivate(t *testing.T) {
	beliefs := newMockBeliefStoreForBRCA()
	b := beliefs.seed("agent-1", "user prefers python", 0.8)
	svc := newBeliefService(beliefs, &mockConflictStoreForBRCA{})

	require.NoError(t, svc.Deactivate(context.Background(), b.ID))
	assert.False(t, beliefs.get(b.ID).Active)

	err := svc.Deactivate(context.Background(), uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestBeliefService_ResolveConflict(t *testing.T) {
	beliefs := newMockBeliefStoreForBRCA()
	conflicts := &mockConflictStoreForBRCA{}
	b := beliefs.seed("agent-1", "user prefers python", 0.8)
	memID := uuid.New()
	conflict := domain.BeliefConflict{
		ID:         uuid.New(),
		BeliefID:   b.ID,
		MemoryID:   &memID,
		AgentID:    "agent-1",
		DetectedAt: time.Now(),
		Severity:   domain.SeverityMedium,
	}
	require.NoError(t, conflicts.Create(context.Background(), &conflict))
	svc := newBeliefService(beliefs, conflicts)

	err := svc.ResolveConflict(context.Background(), conflict.ID, "SHRUG", "", 0)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput), "unknown resolution must be rejected")

	err = svc.ResolveConflict(context.Background(), conflict.ID, domain.ResolutionKeepOld, "operator kept the old belief", 0.9)
	require.NoError(t, err)

	stored, err := conflicts.GetByID(context.Background(), conflict.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)
	assert.Equal(t, domain.ResolutionKeepOld, stored.Resolution)
}

func TestBeliefService_UnresolvedConflicts(t *testing.T) {
	beliefs := newMockBeliefStoreForBRCA()
	conflicts := &mockConflictStoreForBRCA{}
	b := beliefs.seed("agent-1", "user prefers python", 0.8)
	memID := uuid.New()
	for i := 0; i < 2; i++ {
		c := domain.BeliefConflict{
			ID: uuid.New(), BeliefID: b.ID, MemoryID: &memID,
			AgentID: "agent-1", DetectedAt: time.Now(),
		}
		require.NoError(t, conflicts.Create(context.Background(), &c))
	}
	svc := newBeliefService(beliefs, conflicts)

	pending, err := svc.UnresolvedConflicts(context.Background(), "agent-1", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = svc.UnresolvedConflicts(context.Background(), "", 10)
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}
