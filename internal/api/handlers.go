package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hercule-app/hercule/internal/agent"
)

// analyzeRequest is the inbound payload of POST /analyze. PolicyText may be
// empty when URL is set, in which case the server fetches the page itself.
type analyzeRequest struct {
	PolicyText string `json:"policy_text"`
	URL        string `json:"url"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	CacheSize int    `json:"cache_size"`
	TestMode  bool   `json:"test_mode"`
	Provider  string `json:"provider"`
}

type discoverResponse struct {
	PolicyURL string `json:"policy_url"`
	SiteURL   string `json:"site_url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := stripNullBytes(req.PolicyText)
	pageURL := strings.TrimSpace(stripNullBytes(req.URL))

	// Fetch-and-extract fallback when only a URL was supplied.
	if strings.TrimSpace(text) == "" && pageURL != "" {
		resp := s.agent.Handle(r.Context(), agent.ExtractFromURLRequest{URL: pageURL})
		if !resp.Success {
			respondError(w, http.StatusUnprocessableEntity, resp.Error)
			return
		}
		text = resp.PolicyText
	}

	result, err := s.service.Analyze(r.Context(), text, pageURL)
	if err != nil {
		s.logger.Warn("analysis failed", "url", pageURL, "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleHealth returns service health and cache statistics.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		CacheSize: s.service.CacheSize(),
		TestMode:  s.testMode,
		Provider:  s.service.Provider(),
	})
}

func (s *Server) handleDiscoverPolicy(w http.ResponseWriter, r *http.Request) {
	siteURL := strings.TrimSpace(stripNullBytes(r.URL.Query().Get("url")))
	if siteURL == "" {
		respondError(w, http.StatusUnprocessableEntity, "url query parameter is required")
		return
	}

	policyURL, err := s.discovery.FindPolicy(r.Context(), siteURL)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, discoverResponse{PolicyURL: policyURL, SiteURL: siteURL})
}

func stripNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
