// Package analysis turns policy text into a structured risk assessment,
// caching results by content hash so each distinct text is analyzed at most
// once per TTL window.
package analysis

import (
	"context"

	"github.com/hercule-app/hercule/internal/core"
)

// Analyzer is the external text-analysis capability. Its latency and failure
// modes are unspecified; callers treat it as opaque.
type Analyzer interface {
	Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error)

	// Name identifies the provider for health reporting.
	Name() string
}
