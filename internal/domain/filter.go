package domain

import "time"

// FilterOptions narrows memory and belief queries. The zero value from
// DefaultFilterOptions keeps inactive records out.
type FilterOptions struct {
	AgentID               string            `json:"agent_id,omitempty"`
	Category              string            `json:"category,omitempty"`
	Since                 *time.Time        `json:"since,omitempty"`
	Until                 *time.Time        `json:"until,omitempty"`
	Source                string            `json:"source,omitempty"`
	MinRelevanceScore     *float32          `json:"min_relevance_score,omitempty"`
	MaxRelevanceScore     *float32          `json:"max_relevance_score,omitempty"`
	Tags                  []string          `json:"tags,omitempty"`
	ActiveOnly            bool              `json:"active_only"`
	MinCategoryConfidence *float32          `json:"min_category_confidence,omitempty"`
	ExcludeConflicted     bool              `json:"exclude_conflicted,omitempty"`
	MinAccessCount        *int              `json:"min_access_count,omitempty"`
	MaxAgeSeconds         *int64            `json:"max_age_seconds,omitempty"`
	CustomFilters         map[string]string `json:"custom_filters,omitempty"`
}

// DefaultFilterOptions returns a filter with activeOnly set, the default.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{ActiveOnly: true}
}
