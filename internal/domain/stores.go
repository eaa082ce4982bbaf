package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryStore persists MemoryRecord rows.
type MemoryStore interface {
	Create(ctx context.Context, m *MemoryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MemoryRecord, error)
	// GetMany omits missing ids silently; order follows input for ids found.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]MemoryRecord, error)
	FindByAgent(ctx context.Context, agentID string, f FilterOptions, limit int) ([]MemoryRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	// IncrementAccess advances access_count and last_accessed. Increments may
	// be coalesced under load; monotonic non-decrease is the only guarantee.
	IncrementAccess(ctx context.Context, id uuid.UUID) error
}

// BeliefStore persists beliefs. Updates are optimistic: the expected version
// must match or the call fails with a conflict kind.
type BeliefStore interface {
	Create(ctx context.Context, b *Belief) error
	// CreateBatch persists beliefs in one round trip, preserving input order.
	CreateBatch(ctx context.Context, beliefs []*Belief) error
	GetByID(ctx context.Context, id uuid.UUID) (*Belief, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]Belief, error)
	GetByAgent(ctx context.Context, agentID string, includeInactive bool, limit int) ([]Belief, error)
	UpdateReinforcement(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32, reinforcementCount int, evidenceMemoryIDs []uuid.UUID) error
	UpdateConfidence(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// FindDeprecatedBeliefIDs and FindSupersedingBeliefIDs are pushed down to
	// the storage layer; implementations must not materialize the graph.
	FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error)
	FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error)
}

// RelationshipStore persists typed directed edges between beliefs.
type RelationshipStore interface {
	Create(ctx context.Context, r *BeliefRelationship) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefRelationship, error)
	GetBySource(ctx context.Context, beliefID uuid.UUID) ([]BeliefRelationship, error)
	GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]BeliefRelationship, error)
	GetByAgent(ctx context.Context, agentID string, activeOnly bool) ([]BeliefRelationship, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// CloseEffective stamps effective_until on the belief's active outgoing
	// edges that have no end yet.
	CloseEffective(ctx context.Context, sourceBeliefID uuid.UUID, until time.Time) error
}

// ConflictStore persists detected belief conflicts.
type ConflictStore interface {
	Create(ctx context.Context, c *BeliefConflict) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefConflict, error)
	GetByBelief(ctx context.Context, beliefID uuid.UUID) ([]BeliefConflict, error)
	ListUnresolved(ctx context.Context, agentID string, limit int) ([]BeliefConflict, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution ConflictResolution, details string, confidence float32) error
}

// EmbeddingClient turns text into a fixed-dimension unit-norm vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	// IsDeterministic is true only for the hash fallback used when no real
	// model is configured.
	IsDeterministic() bool
}

// Categorizer labels text. It must always return a usable label; total
// failure falls back to FallbackCategory.
type Categorizer interface {
	Categorize(ctx context.Context, text string, hints []string) (CategoryLabel, error)
}

// BeliefExtractor proposes candidate beliefs from text. May return an empty
// list.
type BeliefExtractor interface {
	ExtractBeliefs(ctx context.Context, text string, category CategoryLabel, agentID string) ([]BeliefProposal, error)
}

// MergeSynthesizer is an optional extractor capability used by the MERGE
// resolution; without it the analyzer falls back to KEEP_OLD.
type MergeSynthesizer interface {
	SynthesizeMerge(ctx context.Context, oldStatement, newStatement string) (string, error)
}
