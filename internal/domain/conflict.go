package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConflictResolution selects how the analyzer handles a detected conflict.
type ConflictResolution string

const (
	ResolutionTakeNew             ConflictResolution = "TAKE_NEW"
	ResolutionKeepOld             ConflictResolution = "KEEP_OLD"
	ResolutionMarkUncertain       ConflictResolution = "MARK_UNCERTAIN"
	ResolutionRequireManualReview ConflictResolution = "REQUIRE_MANUAL_REVIEW"
	ResolutionMerge               ConflictResolution = "MERGE"
	ResolutionArchiveOld          ConflictResolution = "ARCHIVE_OLD"
)

func ValidConflictResolution(r string) bool {
	switch ConflictResolution(r) {
	case ResolutionTakeNew, ResolutionKeepOld, ResolutionMarkUncertain,
		ResolutionRequireManualReview, ResolutionMerge, ResolutionArchiveOld:
		return true
	}
	return false
}

// ConflictSeverity grades a conflict by confidence gap.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "LOW"
	SeverityMedium   ConflictSeverity = "MEDIUM"
	SeverityHigh     ConflictSeverity = "HIGH"
	SeverityCritical ConflictSeverity = "CRITICAL"
)

// SeverityForDelta maps |Δconfidence| to a severity bucket.
func SeverityForDelta(delta float32) ConflictSeverity {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta < 0.2:
		return SeverityLow
	case delta < 0.5:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// BeliefConflict records a detected conflict between a belief and either a
// memory or another belief. Invariant: Resolved iff ResolvedAt is set.
type BeliefConflict struct {
	ID                   uuid.UUID          `json:"id"`
	BeliefID             uuid.UUID          `json:"belief_id"`
	MemoryID             *uuid.UUID         `json:"memory_id,omitempty"`
	ConflictingBeliefID  *uuid.UUID         `json:"conflicting_belief_id,omitempty"`
	AgentID              string             `json:"agent_id"`
	Description          string             `json:"description"`
	Resolution           ConflictResolution `json:"resolution,omitempty"`
	ResolutionDetails    string             `json:"resolution_details,omitempty"`
	ResolutionConfidence float32            `json:"resolution_confidence"`
	DetectedAt           time.Time          `json:"detected_at"`
	ResolvedAt           *time.Time         `json:"resolved_at,omitempty"`
	Resolved             bool               `json:"resolved"`
	Severity             ConflictSeverity   `json:"severity"`
}

// Validate enforces that a conflict names at least one opposing side.
func (c *BeliefConflict) Validate() error {
	if c.MemoryID == nil && c.ConflictingBeliefID == nil {
		return E(KindInvalidInput, "conflict must reference a memory or a conflicting belief")
	}
	return nil
}

// MarkResolved sets the resolution fields consistently.
func (c *BeliefConflict) MarkResolved(resolution ConflictResolution, details string, confidence float32, at time.Time) {
	c.Resolution = resolution
	c.ResolutionDetails = details
	c.ResolutionConfidence = ClampConfidence(confidence)
	c.Resolved = true
	c.ResolvedAt = &at
}

// ForgettingStrategyType is wire-stable; forgetting policies themselves run
// outside this service.
type ForgettingStrategyType string

const (
	ForgettingAge       ForgettingStrategyType = "AGE"
	ForgettingLeastUsed ForgettingStrategyType = "LEAST_USED"
	ForgettingLowScore  ForgettingStrategyType = "LOW_SCORE"
	ForgettingCustom    ForgettingStrategyType = "CUSTOM"
)

// Status is the outcome of an operation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusError   Status = "ERROR"
)
