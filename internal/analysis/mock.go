package analysis

import (
	"context"
	"strings"

	"github.com/hercule-app/hercule/internal/core"
)

var concerningKeywords = []string{
	"third party", "third-party", "share", "sell", "indefinitely",
	"arbitration", "waive", "biometric", "tracking", "surveillance",
	"cannot control", "may modify", "without notice",
}

var positiveKeywords = []string{
	"delete", "opt out", "opt-out", "gdpr", "ccpa", "encrypted",
	"never share", "never sell", "your rights", "you can", "contact us",
}

// MockAnalyzer produces deterministic keyword-driven assessments. It runs
// when no API key is configured, so the rest of the pipeline can be
// exercised without a provider account.
type MockAnalyzer struct{}

// NewMockAnalyzer creates a mock analyzer.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// Name identifies the provider.
func (a *MockAnalyzer) Name() string {
	return "mock"
}

// Analyze scores the text from keyword counts. Same text in, same result
// out, which keeps the cache idempotence properties observable in test mode.
func (a *MockAnalyzer) Analyze(_ context.Context, text, url string) (*core.AnalysisResult, error) {
	lower := strings.ToLower(text)

	concernCount := 0
	for _, kw := range concerningKeywords {
		if strings.Contains(lower, kw) {
			concernCount++
		}
	}
	positiveCount := 0
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			positiveCount++
		}
	}

	score := 70 - concernCount*5 + positiveCount*3
	// Very long policies are harder to understand; very short ones rarely
	// hide much.
	if len(text) > 5000 {
		score -= 10
	} else if len(text) < 1000 {
		score += 10
	}
	score = core.ClampScore(score)

	return &core.AnalysisResult{
		Score:           score,
		Summary:         mockSummary(score),
		RedFlags:        mockRedFlags(lower, concernCount, positiveCount),
		UserActionItems: mockActionItems(lower, score, url),
		URL:             url,
	}, nil
}

func mockSummary(score int) string {
	switch {
	case score >= 80:
		return "This privacy policy is relatively user-friendly and transparent. It clearly outlines data collection practices, provides users with control over their information, and demonstrates respect for privacy rights."
	case score >= 50:
		return "This privacy policy has moderate clarity with some areas of concern. Users should be aware of third-party data sharing and review the specific terms that apply to their usage."
	default:
		return "This privacy policy raises significant concerns regarding user privacy and data protection. The policy contains vague language, extensive data collection practices, and broad third-party sharing provisions."
	}
}

func mockRedFlags(lower string, concernCount, positiveCount int) []string {
	flags := []string{}
	if strings.Contains(lower, "third party") || strings.Contains(lower, "third-party") {
		flags = append(flags, "Extensive third-party data sharing mentioned")
	}
	if strings.Contains(lower, "sell") && strings.Contains(lower, "data") {
		flags = append(flags, "Policy may allow selling of user data")
	}
	if strings.Contains(lower, "indefinitely") {
		flags = append(flags, "Data may be retained indefinitely")
	}
	if strings.Contains(lower, "arbitration") {
		flags = append(flags, "Mandatory arbitration clause limits legal options")
	}
	if strings.Contains(lower, "biometric") {
		flags = append(flags, "Collection of biometric data mentioned")
	}
	if strings.Contains(lower, "tracking") {
		flags = append(flags, "User tracking across devices or websites")
	}
	if strings.Contains(lower, "without notice") {
		flags = append(flags, "Policy can be changed without user notification")
	}
	if concernCount > 5 && positiveCount < 3 {
		flags = append(flags, "Limited user control over personal data")
	}
	return flags
}

func mockActionItems(lower string, score int, url string) []core.ActionItem {
	items := []core.ActionItem{}
	if score < 70 {
		items = append(items, core.ActionItem{
			Text:     "Review privacy settings and limit data sharing where possible",
			Priority: core.PriorityHigh,
		})
	}
	if strings.Contains(lower, "opt out") || strings.Contains(lower, "opt-out") {
		item := core.ActionItem{
			Text:     "Look for opt-out options in your account settings",
			Priority: core.PriorityMedium,
		}
		if url != "" {
			item.URL = url + "#settings"
		}
		items = append(items, item)
	}
	if score < 50 {
		items = append(items,
			core.ActionItem{
				Text:     "Consider using privacy-focused alternatives to this service",
				Priority: core.PriorityHigh,
			},
			core.ActionItem{
				Text:     "Use a VPN and privacy browser extensions when using this service",
				Priority: core.PriorityMedium,
			},
		)
	}
	if strings.Contains(lower, "delete") {
		items = append(items, core.ActionItem{
			Text:     "Exercise your right to delete your data if you no longer use the service",
			Priority: core.PriorityLow,
		})
	}
	return items
}
