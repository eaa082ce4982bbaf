package domain

import "time"

// BeliefUpdateResult is the outcome of one belief analysis run over a
// single memory.
type BeliefUpdateResult struct {
	Reinforced        []Belief         `json:"reinforced"`
	Weakened          []Belief         `json:"weakened"`
	NewBeliefs        []Belief         `json:"new_beliefs"`
	Conflicts         []BeliefConflict `json:"conflicts"`
	AnalysisTimestamp time.Time        `json:"analysis_timestamp"`
	// OverallConfidence is the mean post-update confidence of every belief
	// the run touched, or 1.0 when nothing changed.
	OverallConfidence float32 `json:"overall_confidence"`
	ProcessingTimeMs  int64   `json:"processing_time_ms"`
}

// TouchedBeliefs counts how many beliefs the run modified or created.
func (r *BeliefUpdateResult) TouchedBeliefs() int {
	return len(r.Reinforced) + len(r.Weakened) + len(r.NewBeliefs)
}

// IngestionResult reports one ingestion. MemoryID is a synthetic
// "dry-run-<id>" value when DryRun is set.
type IngestionResult struct {
	MemoryID            string              `json:"memory_id"`
	AgentID             string              `json:"agent_id"`
	Category            CategoryLabel       `json:"category"`
	ProcessingTimeMs    int64               `json:"processing_time_ms"`
	BeliefUpdateResult  *BeliefUpdateResult `json:"belief_update_result,omitempty"`
	Partial             bool                `json:"partial"`
	DryRun              bool                `json:"dry_run"`
	Status              Status              `json:"status"`
	BeliefAnalysisError string              `json:"belief_analysis_error,omitempty"`
}
