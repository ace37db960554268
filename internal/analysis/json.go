package analysis

import (
	"encoding/json"
	"strings"

	"github.com/hercule-app/hercule/internal/core"
)

// rawAnalysis mirrors the JSON shape the model is asked to produce.
type rawAnalysis struct {
	Score           *int              `json:"score"`
	Summary         *string           `json:"summary"`
	RedFlags        []string          `json:"red_flags"`
	UserActionItems []core.ActionItem `json:"user_action_items"`
}

// parseAnalysisResponse extracts the structured result from raw model
// output. Models occasionally wrap JSON in markdown fences or stray prose
// despite instructions, so parsing is tolerant of both.
func parseAnalysisResponse(raw string) (*core.AnalysisResult, error) {
	var parsed rawAnalysis
	if err := unmarshalModelJSON(raw, &parsed); err != nil {
		return nil, core.ErrUpstream(core.CodeBadResponse, "invalid JSON in LLM response").WithCause(err)
	}

	if parsed.Score == nil || parsed.Summary == nil {
		return nil, core.ErrUpstream(core.CodeBadResponse, "LLM response missing required fields")
	}

	redFlags := parsed.RedFlags
	if redFlags == nil {
		redFlags = []string{}
	}
	items := make([]core.ActionItem, 0, len(parsed.UserActionItems))
	for _, item := range parsed.UserActionItems {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		if !item.Priority.Valid() {
			item.Priority = core.PriorityMedium
		}
		items = append(items, item)
	}

	return &core.AnalysisResult{
		Score:           core.ClampScore(*parsed.Score),
		Summary:         *parsed.Summary,
		RedFlags:        redFlags,
		UserActionItems: items,
	}, nil
}

// unmarshalModelJSON strips markdown fences before decoding, and falls back
// to the outermost JSON object when prose surrounds it.
func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(cleaned[start:end+1]), out)
	}

	return json.Unmarshal([]byte(cleaned), out)
}
