package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Example</title><style>body { color: red; }</style></head>
<body>
<nav><a href="/home">Home</a></nav>
<div>
<h1>Example Corporation</h1>
<p>We collect information you provide directly, including your name, email
address, and payment details. We may share this information with trusted
third parties for service delivery and analytics purposes. Data is retained
for as long as your account remains active.</p>
<p>You can request deletion of your data at any time by contacting our
support team. We comply with GDPR and CCPA requirements.</p>
</div>
<footer>
<a href="/privacy">Privacy Policy</a>
<a href="/legal/terms">Terms of Service</a>
<a href="https://other.example.org/cookies">Cookies Notice</a>
<a href="/contact">Contact</a>
<a href="#top">Our privacy promise</a>
<a href="mailto:privacy@example.com">Email privacy team</a>
<a href=":t!">Privacy (broken)</a>
</footer>
<script>console.log("tracking");</script>
</body>
</html>`

func newTestAgent(opts ...Option) *Agent {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func TestExtractPageVisibleText(t *testing.T) {
	a := newTestAgent()
	a.LoadPage("https://example.com/privacy", samplePage)

	resp := a.Handle(context.Background(), ExtractPageRequest{})
	if !resp.Success {
		t.Fatalf("extraction failed: %s", resp.Error)
	}
	if resp.PolicyURL != "https://example.com/privacy" {
		t.Errorf("policy url = %q", resp.PolicyURL)
	}
	if !strings.Contains(resp.PolicyText, "We collect information") {
		t.Errorf("body text missing from extraction: %q", resp.PolicyText)
	}
	if strings.Contains(resp.PolicyText, "console.log") {
		t.Error("script content leaked into extracted text")
	}
	if strings.Contains(resp.PolicyText, "color: red") {
		t.Error("style content leaked into extracted text")
	}
	if strings.Contains(resp.PolicyText, "  ") {
		t.Error("whitespace not normalized")
	}
}

func TestExtractPageNoPageLoaded(t *testing.T) {
	a := newTestAgent()
	resp := a.Handle(context.Background(), ExtractPageRequest{})
	if resp.Success {
		t.Fatal("extraction succeeded with no page loaded")
	}
	if resp.Error == "" {
		t.Error("failure carries no message")
	}
}

func TestExtractPageTruncatesLongText(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><p>")
	for b.Len() < core.MaxPolicyTextLength+10000 {
		b.WriteString("This agreement governs your use of the service. ")
	}
	b.WriteString("</p></body></html>")

	a := newTestAgent()
	a.LoadPage("https://example.com/terms", b.String())

	resp := a.Handle(context.Background(), ExtractPageRequest{})
	if !resp.Success {
		t.Fatalf("extraction failed: %s", resp.Error)
	}
	if !strings.HasSuffix(resp.PolicyText, core.TruncationMarker) {
		t.Error("long text missing truncation marker")
	}
}

func TestScanLinksFindsPolicyAnchors(t *testing.T) {
	a := newTestAgent()
	a.LoadPage("https://example.com/", samplePage)

	resp := a.Handle(context.Background(), ScanLinksRequest{})
	if !resp.Success {
		t.Fatalf("scan failed: %s", resp.Error)
	}
	if !resp.Found {
		t.Fatal("found = false with qualifying links present")
	}

	want := map[string]bool{
		"https://example.com/privacy":       true,
		"https://example.com/legal/terms":   true,
		"https://other.example.org/cookies": true,
	}
	if len(resp.Links) != len(want) {
		t.Fatalf("links = %v, want %d entries", resp.Links, len(want))
	}
	for _, link := range resp.Links {
		if !want[link] {
			t.Errorf("unexpected link %q", link)
		}
	}
}

func TestScanLinksNoMatches(t *testing.T) {
	a := newTestAgent()
	a.LoadPage("https://example.com/", `<html><body><a href="/about">About</a></body></html>`)

	resp := a.Handle(context.Background(), ScanLinksRequest{})
	if !resp.Success {
		t.Fatalf("scan failed: %s", resp.Error)
	}
	if resp.Found {
		t.Error("found = true with no qualifying links")
	}
	if len(resp.Links) != 0 {
		t.Errorf("links = %v, want none", resp.Links)
	}
}

func TestGetLinksReturnsPersistedScan(t *testing.T) {
	a := newTestAgent()

	resp := a.Handle(context.Background(), GetLinksRequest{})
	if !resp.Success || len(resp.Links) != 0 {
		t.Fatalf("before any scan: %+v", resp)
	}

	a.LoadPage("https://example.com/", samplePage)
	a.Handle(context.Background(), ScanLinksRequest{})

	resp = a.Handle(context.Background(), GetLinksRequest{})
	if !resp.Success {
		t.Fatalf("getLinks failed: %s", resp.Error)
	}
	if len(resp.Links) == 0 {
		t.Error("scanned links not persisted")
	}
}

func TestExtractFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	a := newTestAgent()
	resp := a.Handle(context.Background(), ExtractFromURLRequest{URL: srv.URL + "/privacy"})
	if !resp.Success {
		t.Fatalf("extraction failed: %s", resp.Error)
	}
	if !strings.Contains(resp.PolicyText, "We collect information") {
		t.Errorf("extracted text = %q", resp.PolicyText)
	}
	if resp.PolicyURL != srv.URL+"/privacy" {
		t.Errorf("policy url = %q", resp.PolicyURL)
	}
}

func TestExtractFromURLRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	a := newTestAgent(WithRetryBase(time.Millisecond))
	resp := a.Handle(context.Background(), ExtractFromURLRequest{URL: srv.URL})
	if !resp.Success {
		t.Fatalf("extraction failed after retries: %s", resp.Error)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestExtractFromURLExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := newTestAgent(WithRetryBase(time.Millisecond))
	resp := a.Handle(context.Background(), ExtractFromURLRequest{URL: srv.URL})
	if resp.Success {
		t.Fatal("extraction succeeded against a failing server")
	}
	// One initial attempt plus two retries.
	if got := calls.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
	if resp.Error == "" {
		t.Error("failure carries no message")
	}
}

func TestExtractFromURLEmptyURL(t *testing.T) {
	a := newTestAgent()
	resp := a.Handle(context.Background(), ExtractFromURLRequest{URL: "  "})
	if resp.Success {
		t.Fatal("extraction succeeded with empty url")
	}
}
