package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/hercule-app/hercule/internal/core"
)

const userAgent = "Mozilla/5.0 (compatible; Hercule/1.0)"

// Caps how much of a response body is read. Policy pages beyond this are
// truncated later anyway.
const maxBodyBytes = 4 << 20

type fetcher struct {
	client        *http.Client
	timeout       time.Duration
	retryBase     time.Duration
	extraAttempts int
}

func newFetcher(timeout, retryBase time.Duration, extraAttempts int) *fetcher {
	return &fetcher{
		client:        &http.Client{},
		timeout:       timeout,
		retryBase:     retryBase,
		extraAttempts: extraAttempts,
	}
}

// fetch GETs the URL and returns the UTF-8 decoded body. Transient failures
// are retried with a linearly growing delay; the attempt counter is explicit
// and bounded.
func (f *fetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 1+f.extraAttempts; attempt++ {
		if attempt > 1 {
			delay := f.retryBase * time.Duration(attempt-1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", core.ErrTimeout("fetch canceled").WithCause(ctx.Err())
			}
		}

		body, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var domainErr *core.DomainError
		if errors.As(err, &domainErr) && domainErr.Category == core.ErrCatValidation {
			return "", err
		}
	}
	return "", core.ErrExtraction(core.CodeFetchFailed,
		fmt.Sprintf("failed to fetch %s", rawURL)).WithCause(lastErr)
}

func (f *fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", core.ErrValidation(core.CodeBadURL, "invalid url").WithCause(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		reader = io.LimitReader(resp.Body, maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
