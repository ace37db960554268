package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/hercule-app/hercule/internal/core"
)

// Anchor-text keywords that mark a link as a candidate policy page.
var policyKeywords = []string{"privacy", "terms", "legal", "policy", "tos", "conditions"}

// Paths probed when the homepage scan finds nothing.
var commonPaths = []string{
	"/privacy",
	"/privacy-policy",
	"/privacy_policy",
	"/legal",
	"/legal/privacy",
	"/terms",
	"/terms-of-service",
	"/tos",
}

const (
	defaultRequestTimeout = 10 * time.Second
	probeConcurrency      = 4
)

// Service locates a site's privacy policy page. It scans the homepage for
// policy-looking anchors first and falls back to probing well-known paths.
type Service struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures the discovery service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for scans and probes.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// New creates a discovery service.
func New(opts ...Option) *Service {
	s := &Service{
		client: &http.Client{Timeout: defaultRequestTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindPolicy returns the URL of the site's policy page, or an error when
// none can be located.
func (s *Service) FindPolicy(ctx context.Context, siteURL string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || base.Host == "" {
		return "", core.ErrValidation(core.CodeBadURL, "a full site URL is required")
	}

	if found, err := s.scanHomepage(ctx, base); err == nil && found != "" {
		return found, nil
	}

	if found := s.probeCommonPaths(ctx, base); found != "" {
		return found, nil
	}
	return "", core.ErrExtraction(core.CodeFetchFailed,
		fmt.Sprintf("no policy page found for %s", base.Host))
}

// scanHomepage looks for anchors whose text or href mentions a policy
// keyword and returns the first match resolved to an absolute URL.
func (s *Service) scanHomepage(ctx context.Context, base *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("homepage returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}

	found := ""
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		if !containsKeyword(sel.Text()) && !containsKeyword(href) {
			return true
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(parsed).String()
		return false
	})
	return found, nil
}

// probeCommonPaths issues bounded-concurrency HEAD requests against the
// well-known paths and returns the first (in path order) that answers OK.
func (s *Service) probeCommonPaths(ctx context.Context, base *url.URL) string {
	results := make([]bool, len(commonPaths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, path := range commonPaths {
		i, path := i, path
		g.Go(func() error {
			candidate := *base
			candidate.Path = path
			ok := s.probe(ctx, candidate.String())
			mu.Lock()
			results[i] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range results {
		if ok {
			candidate := *base
			candidate.Path = commonPaths[i]
			return candidate.String()
		}
	}
	return ""
}

func (s *Service) probe(ctx context.Context, probeURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func containsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range policyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
