package agent

// Request is the closed set of messages the orchestrator can send to the
// agent. The marker method keeps dispatch exhaustive: adding a request kind
// forces a new case in Agent.Handle.
type Request interface {
	isRequest()
}

// ExtractPageRequest asks for the visible text of the loaded page.
type ExtractPageRequest struct{}

// ScanLinksRequest asks the agent to collect policy-related links from the
// loaded page and persist them for a later GetLinksRequest.
type ScanLinksRequest struct{}

// ExtractFromURLRequest asks the agent to fetch a URL and extract its
// visible text.
type ExtractFromURLRequest struct {
	URL string
}

// GetLinksRequest asks for the most recently persisted link list.
type GetLinksRequest struct{}

func (ExtractPageRequest) isRequest()    {}
func (ScanLinksRequest) isRequest()      {}
func (ExtractFromURLRequest) isRequest() {}
func (GetLinksRequest) isRequest()       {}

// Response carries the outcome of any agent request. Fields that do not
// apply to the request kind are left zero.
type Response struct {
	Success    bool     `json:"success"`
	PolicyText string   `json:"policyText,omitempty"`
	PolicyURL  string   `json:"policyUrl,omitempty"`
	Links      []string `json:"links,omitempty"`
	Found      bool     `json:"found,omitempty"`
	Error      string   `json:"error,omitempty"`
}
