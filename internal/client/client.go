// Package client calls the analysis service over HTTP on behalf of the
// orchestrator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeRequest struct {
	PolicyText string `json:"policy_text"`
	URL        string `json:"url,omitempty"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Analyze posts the policy text for analysis. Non-200 responses become
// upstream errors carrying the service's message so the orchestrator can
// surface it verbatim.
func (c *Client) Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
	payload, err := json.Marshal(analyzeRequest{PolicyText: text, URL: url})
	if err != nil {
		return nil, core.ErrValidation(core.CodeEmptyText, "could not encode request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, core.ErrValidation(core.CodeBadURL, "invalid service URL").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, core.ErrTimeout("timed out").WithCause(err)
		}
		return nil, core.ErrUpstream(core.CodeServiceDown, "analysis service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, core.ErrUpstream(core.CodeBadResponse, "could not read service response").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode, body)
	}

	var result core.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, core.ErrUpstream(core.CodeBadResponse, "malformed service response").WithCause(err)
	}
	return &result, nil
}

// Health probes the service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return core.ErrValidation(core.CodeBadURL, "invalid service URL").WithCause(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.ErrUpstream(core.CodeServiceDown, "analysis service unreachable").WithCause(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.ErrUpstream(core.CodeServiceDown, fmt.Sprintf("health check returned %d", resp.StatusCode))
	}
	return nil
}

// upstreamError extracts the service's error message from a non-200 body.
func upstreamError(status int, body []byte) error {
	var eb errorBody
	msg := ""
	if err := json.Unmarshal(body, &eb); err == nil {
		msg = eb.Error
		if msg == "" {
			msg = eb.Detail
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("analysis service returned %d", status)
	}
	if status == http.StatusGatewayTimeout {
		return core.ErrTimeout(msg)
	}
	return core.ErrUpstream(core.CodeAnalysisFailed, msg)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
