package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hercule-app/hercule/internal/cache"
	"github.com/hercule-app/hercule/internal/core"
)

// Service validates input, consults the cache, and invokes the analyzer on
// misses. It is safe for concurrent use; concurrent calls for the same
// content hash are collapsed into a single analyzer invocation.
type Service struct {
	analyzer Analyzer
	store    cache.Store
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an analysis service.
func NewService(analyzer Analyzer, store cache.Store, opts ...ServiceOption) *Service {
	s := &Service{
		analyzer: analyzer,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the analyzer name for health reporting.
func (s *Service) Provider() string {
	return s.analyzer.Name()
}

// CacheSize returns the number of cached entries.
func (s *Service) CacheSize() int {
	return s.store.Size()
}

// Analyze returns the risk assessment for text. Repeated calls with the same
// text (after truncation) within the TTL return the cached result unchanged,
// byte for byte, without touching the analyzer.
func (s *Service) Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrValidation(core.CodeEmptyText, "policy text is empty")
	}

	truncated := core.TruncatePolicyText(text)
	hash := core.HashPolicyText(truncated)

	if entry, ok := s.store.Get(hash); ok {
		s.logger.Info("cache hit",
			slog.String("hash", shortHash(hash)),
			slog.Int("score", entry.Result.Score),
		)
		result := entry.Result
		return &result, nil
	}

	s.logger.Info("cache miss, invoking analyzer",
		slog.String("hash", shortHash(hash)),
		slog.String("provider", s.analyzer.Name()),
	)

	// Collapse concurrent misses for one hash into a single analyzer call.
	// singleflight releases the key on every exit path, so a failed call
	// never blocks later callers.
	v, err, _ := s.group.Do(hash, func() (interface{}, error) {
		// A concurrent flight may have completed between our miss and
		// joining the group.
		if entry, ok := s.store.Get(hash); ok {
			result := entry.Result
			return &result, nil
		}
		return s.analyzeMiss(ctx, truncated, hash, url)
	})
	if err != nil {
		return nil, err
	}

	result := *(v.(*core.AnalysisResult))
	return &result, nil
}

func (s *Service) analyzeMiss(ctx context.Context, truncated, hash, url string) (*core.AnalysisResult, error) {
	// The caller abandoning its request must not abort an analysis other
	// waiters (or the cache) can still benefit from; the analyzer bounds its
	// own call with a timeout.
	start := s.now()
	result, err := s.analyzer.Analyze(context.WithoutCancel(ctx), truncated, url)
	if err != nil {
		s.logger.Error("analyzer failed",
			slog.String("hash", shortHash(hash)),
			slog.String("error", err.Error()),
		)
		var domErr *core.DomainError
		if errors.As(err, &domErr) {
			return nil, err
		}
		return nil, core.ErrUpstream(core.CodeAnalysisFailed, "failed to analyze policy").WithCause(err)
	}

	result.Score = core.ClampScore(result.Score)
	result.Timestamp = s.now().UTC()
	result.URL = url

	if putErr := s.store.Put(hash, *result); putErr != nil {
		// The analysis itself succeeded; a persistence failure costs a
		// future cache hit, not this response.
		s.logger.Warn("failed to cache result",
			slog.String("hash", shortHash(hash)),
			slog.String("error", putErr.Error()),
		)
	}

	s.logger.Info("analysis complete",
		slog.String("hash", shortHash(hash)),
		slog.Int("score", result.Score),
		slog.Int("red_flags", len(result.RedFlags)),
		slog.Duration("duration", s.now().Sub(start)),
	)
	return result, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
