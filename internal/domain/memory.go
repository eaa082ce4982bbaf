package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClampConfidence forces a confidence value into [0,1].
// Out-of-range inputs are clamped, never rejected.
func ClampConfidence(c float32) float32 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// CategoryLabel is the output of the categorization engine.
type CategoryLabel struct {
	Primary    string   `json:"primary"`
	Secondary  string   `json:"secondary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Confidence float32  `json:"confidence"`
}

// NewCategoryLabel builds a label with trimmed, deduplicated tags and clamped confidence.
func NewCategoryLabel(primary, secondary string, tags []string, confidence float32) CategoryLabel {
	var cleaned []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		cleaned = append(cleaned, t)
	}
	return CategoryLabel{
		Primary:    primary,
		Secondary:  secondary,
		Tags:       cleaned,
		Confidence: ClampConfidence(confidence),
	}
}

// FallbackCategory is returned when categorization fails entirely.
func FallbackCategory() CategoryLabel {
	return CategoryLabel{Primary: "general", Secondary: "information", Confidence: 0.5}
}

// MemoryMetadata carries caller-supplied context plus access tracking.
type MemoryMetadata struct {
	Importance     float32        `json:"importance,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Source         string         `json:"source,omitempty"`
	Confidence     float32        `json:"confidence,omitempty"`
	AccessCount    int            `json:"access_count"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	Custom         map[string]any `json:"custom,omitempty"`
}

// MemoryInput is an ingestion request before encoding.
type MemoryInput struct {
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Metadata  MemoryMetadata `json:"metadata,omitempty"`
}

// MemoryRecord is a stored memory. ID and AgentID are immutable once written.
type MemoryRecord struct {
	ID        uuid.UUID      `json:"id"`
	AgentID   string         `json:"agent_id"`
	Content   string         `json:"content"`
	Category  CategoryLabel  `json:"category"`
	Metadata  MemoryMetadata `json:"metadata"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	Version   int            `json:"version"`
}

// MemoryWithScore pairs a record with a similarity score.
type MemoryWithScore struct {
	MemoryRecord
	Score float32 `json:"score"`
}
