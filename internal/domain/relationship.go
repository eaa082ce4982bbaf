package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType is the wire-stable type of a directed belief edge.
type RelationshipType string

const (
	// Temporal
	RelationSupersedes RelationshipType = "SUPERSEDES"
	RelationUpdates    RelationshipType = "UPDATES"
	RelationDeprecates RelationshipType = "DEPRECATES"
	RelationReplaces   RelationshipType = "REPLACES"
	// Logical
	RelationSupports    RelationshipType = "SUPPORTS"
	RelationContradicts RelationshipType = "CONTRADICTS"
	RelationImplies     RelationshipType = "IMPLIES"
	RelationReinforces  RelationshipType = "REINFORCES"
	RelationWeakens     RelationshipType = "WEAKENS"
	// Semantic
	RelationRelatesTo   RelationshipType = "RELATES_TO"
	RelationSpecializes RelationshipType = "SPECIALIZES"
	RelationGeneralizes RelationshipType = "GENERALIZES"
	RelationExtends     RelationshipType = "EXTENDS"
	RelationDerivesFrom RelationshipType = "DERIVES_FROM"
	// Causal
	RelationCauses   RelationshipType = "CAUSES"
	RelationCausedBy RelationshipType = "CAUSED_BY"
	RelationEnables  RelationshipType = "ENABLES"
	RelationPrevents RelationshipType = "PREVENTS"
	// Contextual
	RelationDependsOn  RelationshipType = "DEPENDS_ON"
	RelationPrecedes   RelationshipType = "PRECEDES"
	RelationFollows    RelationshipType = "FOLLOWS"
	RelationContextFor RelationshipType = "CONTEXT_FOR"
	// Evidence
	RelationEvidencedBy         RelationshipType = "EVIDENCED_BY"
	RelationProvidesEvidenceFor RelationshipType = "PROVIDES_EVIDENCE_FOR"
	RelationConflictsWith       RelationshipType = "CONFLICTS_WITH"
	// Similarity
	RelationSimilarTo     RelationshipType = "SIMILAR_TO"
	RelationAnalogousTo   RelationshipType = "ANALOGOUS_TO"
	RelationContrastsWith RelationshipType = "CONTRASTS_WITH"

	RelationCustom RelationshipType = "CUSTOM"
)

// Static classification tables. Behavior over the enum lives here, in one
// place, instead of per-value methods.
var (
	// DeprecatingRelations mark the target belief as superseded by the source.
	DeprecatingRelations = map[RelationshipType]bool{
		RelationSupersedes: true,
		RelationUpdates:    true,
		RelationDeprecates: true,
		RelationReplaces:   true,
	}

	// TemporalRelations carry effective-time semantics.
	TemporalRelations = map[RelationshipType]bool{
		RelationSupersedes: true,
		RelationUpdates:    true,
		RelationDeprecates: true,
		RelationReplaces:   true,
	}

	// SymmetricRelations are bidirectional by nature.
	SymmetricRelations = map[RelationshipType]bool{
		RelationSimilarTo:   true,
		RelationAnalogousTo: true,
		RelationRelatesTo:   true,
	}

	// InverseRelations maps a type to its inverse, both directions.
	InverseRelations = map[RelationshipType]RelationshipType{
		RelationCauses:              RelationCausedBy,
		RelationCausedBy:            RelationCauses,
		RelationSpecializes:         RelationGeneralizes,
		RelationGeneralizes:         RelationSpecializes,
		RelationPrecedes:            RelationFollows,
		RelationFollows:             RelationPrecedes,
		RelationEvidencedBy:         RelationProvidesEvidenceFor,
		RelationProvidesEvidenceFor: RelationEvidencedBy,
	}

	allRelationshipTypes = map[RelationshipType]bool{
		RelationSupersedes: true, RelationUpdates: true, RelationDeprecates: true, RelationReplaces: true,
		RelationSupports: true, RelationContradicts: true, RelationImplies: true, RelationReinforces: true, RelationWeakens: true,
		RelationRelatesTo: true, RelationSpecializes: true, RelationGeneralizes: true, RelationExtends: true, RelationDerivesFrom: true,
		RelationCauses: true, RelationCausedBy: true, RelationEnables: true, RelationPrevents: true,
		RelationDependsOn: true, RelationPrecedes: true, RelationFollows: true, RelationContextFor: true,
		RelationEvidencedBy: true, RelationProvidesEvidenceFor: true, RelationConflictsWith: true,
		RelationSimilarTo: true, RelationAnalogousTo: true, RelationContrastsWith: true,
		RelationCustom: true,
	}
)

func ValidRelationshipType(t string) bool {
	return allRelationshipTypes[RelationshipType(t)]
}

// BeliefRelationship is a directed, typed, optionally time-bounded edge
// between two beliefs of the same agent.
type BeliefRelationship struct {
	ID                uuid.UUID        `json:"id"`
	SourceBeliefID    uuid.UUID        `json:"source_belief_id"`
	TargetBeliefID    uuid.UUID        `json:"target_belief_id"`
	AgentID           string           `json:"agent_id"`
	Type              RelationshipType `json:"type"`
	Strength          float32          `json:"strength"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	LastUpdated       time.Time        `json:"last_updated"`
	Active            bool             `json:"active"`
	EffectiveFrom     *time.Time       `json:"effective_from,omitempty"`
	EffectiveUntil    *time.Time       `json:"effective_until,omitempty"`
	DeprecationReason string           `json:"deprecation_reason,omitempty"`
	Priority          int              `json:"priority"`
}

// Validate enforces edge invariants: no self-loops, valid type, and
// effectiveFrom <= effectiveUntil when both are present.
func (r *BeliefRelationship) Validate() error {
	if r.SourceBeliefID == r.TargetBeliefID {
		return E(KindInvalidInput, "relationship source and target must differ")
	}
	if !ValidRelationshipType(string(r.Type)) {
		return E(KindInvalidInput, "unknown relationship type: "+string(r.Type))
	}
	if r.EffectiveFrom != nil && r.EffectiveUntil != nil && r.EffectiveFrom.After(*r.EffectiveUntil) {
		return E(KindInvalidInput, "relationship effective_from is after effective_until")
	}
	return nil
}

// EffectiveAt reports whether the edge is in force at t.
func (r *BeliefRelationship) EffectiveAt(t time.Time) bool {
	if r.EffectiveFrom != nil && t.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && t.After(*r.EffectiveUntil) {
		return false
	}
	return true
}
