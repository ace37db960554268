package agent

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/hercule-app/hercule/internal/core"
)

var (
	reWhitespace   = regexp.MustCompile(`\s+`)
	blockOpenTags  = regexp.MustCompile(`<(div|p|br|li|td|tr|h[1-6])[^>]*>`)
	blockCloseTags = regexp.MustCompile(`</(div|p|li|td|tr|h[1-6])>`)
	strippedMarkup = "script, style, noscript, iframe, svg, nav, aside, figure"
)

// extractVisibleText pulls the readable text out of an HTML document. A
// readability pass isolates the main content; when it cannot find an
// article (common for terse legal pages) the whole body is used instead.
// The result is whitespace-normalized and capped by the truncation rule.
func extractVisibleText(rawHTML, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", core.ErrExtraction(core.CodeBadURL, "invalid page URL").WithCause(err)
	}

	// Block-level tags are padded with spaces first so that text from
	// adjacent elements does not run together after tag stripping.
	processed := addSpacesBeforeParsing(rawHTML)

	content := ""
	if article, err := readability.FromReader(strings.NewReader(processed), parsedURL); err == nil && strings.TrimSpace(article.TextContent) != "" {
		content = article.Content
	} else {
		content = processed
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", core.ErrExtraction(core.CodePageUnreadable, "unable to parse page content").WithCause(err)
	}
	doc.Find(strippedMarkup).Remove()

	text := normalizeText(doc.Text())
	if text == "" {
		return "", core.ErrExtraction(core.CodePageUnreadable, "page contains no readable text")
	}
	return core.TruncatePolicyText(text), nil
}

func normalizeText(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

func addSpacesBeforeParsing(html string) string {
	html = blockOpenTags.ReplaceAllString(html, " $0")
	html = blockCloseTags.ReplaceAllString(html, "$0 ")
	return html
}
