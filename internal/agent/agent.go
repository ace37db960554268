package agent

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hercule-app/hercule/internal/core"
)

// Keywords a link's visible text must contain, case-insensitively, to
// qualify as policy-related.
var linkKeywords = []string{"privacy", "terms", "cookies"}

const (
	defaultFetchTimeout = 10 * time.Second
	defaultRetryBase    = 500 * time.Millisecond
	// Extra attempts after the first failed fetch.
	defaultExtraAttempts = 2
)

// Agent answers extraction requests against a loaded page. It mirrors the
// role of in-page content code: it can read the page it was given, scan its
// anchors, and fetch linked documents, but it knows nothing about the
// workflow driving it.
type Agent struct {
	fetcher *fetcher
	logger  *slog.Logger

	mu       sync.Mutex
	pageURL  string
	pageHTML string
	// Most recently persisted link list, keyed by the page it came from.
	links    map[string][]string
	lastPage string
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithFetchTimeout bounds each outbound fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.fetcher.timeout = d
	}
}

// WithRetryBase sets the base delay of the fetch retry schedule.
func WithRetryBase(d time.Duration) Option {
	return func(a *Agent) {
		a.fetcher.retryBase = d
	}
}

// New creates an agent with no page loaded.
func New(opts ...Option) *Agent {
	a := &Agent{
		fetcher: newFetcher(defaultFetchTimeout, defaultRetryBase, defaultExtraAttempts),
		logger:  slog.Default(),
		links:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadPage sets the document subsequent page-scoped requests operate on.
func (a *Agent) LoadPage(pageURL, html string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pageURL = pageURL
	a.pageHTML = html
}

// Handle dispatches a request to its handler. The switch is exhaustive over
// the Request set.
func (a *Agent) Handle(ctx context.Context, req Request) Response {
	switch r := req.(type) {
	case ExtractPageRequest:
		return a.extractPage()
	case ScanLinksRequest:
		return a.scanLinks()
	case ExtractFromURLRequest:
		return a.extractFromURL(ctx, r.URL)
	case GetLinksRequest:
		return a.getLinks()
	default:
		return Response{Error: "unsupported request"}
	}
}

func (a *Agent) extractPage() Response {
	a.mu.Lock()
	pageURL, html := a.pageURL, a.pageHTML
	a.mu.Unlock()

	if html == "" {
		return errorResponse(core.ErrExtraction(core.CodePageUnreadable, "no page loaded"))
	}
	text, err := extractVisibleText(html, pageURL)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, PolicyText: text, PolicyURL: pageURL}
}

func (a *Agent) scanLinks() Response {
	a.mu.Lock()
	pageURL, html := a.pageURL, a.pageHTML
	a.mu.Unlock()

	if html == "" {
		return errorResponse(core.ErrExtraction(core.CodePageUnreadable, "no page loaded"))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return errorResponse(core.ErrExtraction(core.CodePageUnreadable, "unable to parse page").WithCause(err))
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return errorResponse(core.ErrExtraction(core.CodeBadURL, "invalid page URL").WithCause(err))
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if !matchesLinkKeywords(s.Text()) {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed).String()
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	a.mu.Lock()
	a.links[pageURL] = links
	a.lastPage = pageURL
	a.mu.Unlock()

	a.logger.Debug("scanned page links", "url", pageURL, "found", len(links))
	return Response{Success: true, Links: links, Found: len(links) > 0}
}

func (a *Agent) extractFromURL(ctx context.Context, rawURL string) Response {
	if strings.TrimSpace(rawURL) == "" {
		return errorResponse(core.ErrValidation(core.CodeBadURL, "url is required"))
	}

	html, err := a.fetcher.fetch(ctx, rawURL)
	if err != nil {
		return errorResponse(err)
	}
	text, err := extractVisibleText(html, rawURL)
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, PolicyText: text, PolicyURL: rawURL}
}

func (a *Agent) getLinks() Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	links := a.links[a.lastPage]
	if links == nil {
		links = []string{}
	}
	return Response{Success: true, Links: links}
}

func matchesLinkKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range linkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: core.UserMessage(err)}
}
