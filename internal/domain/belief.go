package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Polarity is the stance of a belief statement.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// OrPositive normalizes an unset polarity. Extractors that do not emit
// polarity are treated as asserting positively.
func (p Polarity) OrPositive() Polarity {
	if p == PolarityNegative {
		return PolarityNegative
	}
	return PolarityPositive
}

// Opposes reports whether two polarities disagree, with absent values
// normalized to positive.
func (p Polarity) Opposes(o Polarity) bool {
	return p.OrPositive() != o.OrPositive()
}

// Belief is a distilled declarative statement derived from one or more
// memories. Confidence is clamped on every mutation; LastUpdated advances
// on any mutation; ReinforcementCount never decreases.
type Belief struct {
	ID                 uuid.UUID     `json:"id"`
	AgentID            string        `json:"agent_id"`
	Statement          string        `json:"statement"`
	Confidence         float32       `json:"confidence"`
	EvidenceMemoryIDs  []uuid.UUID   `json:"evidence_memory_ids,omitempty"`
	Category           CategoryLabel `json:"category"`
	CreatedAt          time.Time     `json:"created_at"`
	LastUpdated        time.Time     `json:"last_updated"`
	ReinforcementCount int           `json:"reinforcement_count"`
	Active             bool          `json:"active"`
	Tags               []string      `json:"tags,omitempty"`
	Embedding          []float32     `json:"-"`
	Version            int           `json:"version"`
}

// HasEvidence reports whether the memory is already recorded as evidence.
func (b *Belief) HasEvidence(memoryID uuid.UUID) bool {
	for _, id := range b.EvidenceMemoryIDs {
		if id == memoryID {
			return true
		}
	}
	return false
}

// BeliefWithScore pairs a belief with a similarity score.
type BeliefWithScore struct {
	Belief
	Score float32 `json:"score"`
}

// BeliefProposal is a candidate belief emitted by an extractor.
type BeliefProposal struct {
	Statement string        `json:"statement"`
	Category  CategoryLabel `json:"category"`
	// Confidence is the extractor's own estimate, clamped by consumers.
	Confidence float32  `json:"confidence"`
	Polarity   Polarity `json:"polarity,omitempty"`
	// MergedStatement is an optional synthesis for MERGE resolution.
	// Extractors that cannot synthesize leave it empty.
	MergedStatement string `json:"merged_statement,omitempty"`
	// SourceBeliefID is set when the extractor can tie the proposal to an
	// existing belief, enabling a REINFORCES edge.
	SourceBeliefID *uuid.UUID `json:"source_belief_id,omitempty"`
}

// MaxStatementChars caps proposal statements.
const MaxStatementChars = 300

// TruncateStatement caps a statement at MaxStatementChars. It counts
// runes, not bytes, so a multi-byte character is never split.
func TruncateStatement(s string) string {
	if utf8.RuneCountInString(s) <= MaxStatementChars {
		return s
	}
	return string([]rune(s)[:MaxStatementChars])
}

var negationMarkers = []string{
	" not ", " never ", " no longer ", " isn't ", " aren't ", " wasn't ",
	" weren't ", " doesn't ", " don't ", " didn't ", " cannot ", " can't ",
	" won't ", " shouldn't ", " couldn't ",
}

// DetectPolarity infers the stance of a statement from negation markers.
// Beliefs do not store polarity; it is always derived from the statement,
// so a proposal and a stored belief are compared on equal footing.
func DetectPolarity(statement string) Polarity {
	padded := " " + strings.ToLower(statement) + " "
	for _, m := range negationMarkers {
		if strings.Contains(padded, m) {
			return PolarityNegative
		}
	}
	return PolarityPositive
}
