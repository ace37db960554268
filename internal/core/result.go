package core

import "time"

// Priority ranks how urgently a user should act on a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the closed set.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ActionItem is a single recommendation for the user.
type ActionItem struct {
	Text     string   `json:"text"`
	URL      string   `json:"url,omitempty"`
	Priority Priority `json:"priority"`
}

// AnalysisResult is the structured outcome of analyzing one policy text.
// Timestamp records when the analysis was produced, not when it was last
// served from cache.
type AnalysisResult struct {
	Score           int          `json:"score"`
	Summary         string       `json:"summary"`
	RedFlags        []string     `json:"red_flags"`
	UserActionItems []ActionItem `json:"user_action_items"`
	Timestamp       time.Time    `json:"timestamp"`
	URL             string       `json:"url"`
}

// ClampScore forces a score into the 0-100 range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
