package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hercule-app/hercule/internal/agent"
	"github.com/hercule-app/hercule/internal/core"
)

// URL schemes that never carry analyzable content. Matching pages fail
// before any extraction or network call.
var restrictedSchemes = []string{
	"chrome:", "chrome-extension:", "about:", "edge:",
	"moz-extension:", "brave:", "opera:", "vivaldi:", "devtools:",
}

const defaultAnalysisTimeout = 30 * time.Second

// AgentTransport delivers requests to the extraction agent. A returned
// error means the request could not be delivered at all; agent-level
// failures arrive inside the Response.
type AgentTransport interface {
	Send(ctx context.Context, req agent.Request) (agent.Response, error)
	Inject(ctx context.Context) error
}

// AnalysisClient calls the analysis service across the network boundary.
type AnalysisClient interface {
	Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error)
}

// Orchestrator drives one analysis workflow per Run call: extract the page
// text through the agent, then analyze it through the service, reporting
// phase changes along the way. Runs may overlap; only the most recent one
// may touch the shared progress state.
type Orchestrator struct {
	transport AgentTransport
	client    AnalysisClient
	logger    *slog.Logger
	progress  Progress
	policy    *RetryPolicy
	timeout   time.Duration

	mu      sync.Mutex
	current uuid.UUID
	state   State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgress sets the phase-change callback.
func WithProgress(progress Progress) Option {
	return func(o *Orchestrator) {
		o.progress = progress
	}
}

// WithRetryPolicy sets the analysis retry policy.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithAnalysisTimeout bounds the whole analysis phase including retries.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// New creates an orchestrator.
func New(transport AgentTransport, client AnalysisClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: transport,
		client:    client,
		logger:    slog.Default(),
		policy:    DefaultRetryPolicy(),
		timeout:   defaultAnalysisTimeout,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the phase of the most recent invocation.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes the workflow against pageURL. Each call starts fresh from
// Idle and supersedes any invocation still in flight: a superseded
// invocation keeps running (its analysis may still populate the cache) but
// its phase changes are discarded.
func (o *Orchestrator) Run(ctx context.Context, pageURL string) (*core.AnalysisResult, error) {
	token := uuid.New()
	o.mu.Lock()
	o.current = token
	o.state = StateIdle
	o.mu.Unlock()

	if isRestrictedURL(pageURL) {
		err := core.ErrRestrictedPage("cannot analyze this type of page")
		o.fail(token, err)
		return nil, err
	}

	text, policyURL, err := o.extract(ctx, token)
	if err != nil {
		o.fail(token, err)
		return nil, err
	}
	o.report(token, StateExtracted, "")

	result, err := o.analyze(ctx, token, text, policyURL)
	if err != nil {
		o.fail(token, err)
		return nil, err
	}

	o.report(token, StateSucceeded, "")
	return result, nil
}

// extract requests the page text. When the first request cannot be
// delivered, the agent is injected exactly once and the request resent
// once. A second delivery failure is terminal.
func (o *Orchestrator) extract(ctx context.Context, token uuid.UUID) (string, string, error) {
	o.report(token, StateExtracting, "")

	resp, err := o.transport.Send(ctx, agent.ExtractPageRequest{})
	if err != nil {
		o.logger.Debug("agent unreachable, injecting", "error", err)
		o.report(token, StateInjecting, "")

		if injErr := o.transport.Inject(ctx); injErr != nil {
			return "", "", core.ErrCommunication("cannot access this page").WithCause(injErr)
		}
		o.report(token, StateExtracting, "")
		resp, err = o.transport.Send(ctx, agent.ExtractPageRequest{})
		if err != nil {
			return "", "", core.ErrCommunication("cannot access this page").WithCause(err)
		}
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "could not read page content"
		}
		return "", "", core.ErrExtraction(core.CodePageUnreadable, msg)
	}
	return resp.PolicyText, resp.PolicyURL, nil
}

// analyze calls the service under the total phase timeout, retrying
// non-timeout failures per the policy.
func (o *Orchestrator) analyze(ctx context.Context, token uuid.UUID, text, url string) (*core.AnalysisResult, error) {
	o.report(token, StateAnalyzing, "")

	analysisCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var result *core.AnalysisResult
	err := o.policy.Execute(analysisCtx, func(ctx context.Context) error {
		res, err := o.client.Analyze(ctx, text, url)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if core.IsCategory(err, core.ErrCatTimeout) {
			return nil, core.ErrTimeout("timed out").WithCause(err)
		}
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) fail(token uuid.UUID, err error) {
	o.report(token, StateFailed, core.UserMessage(err))
}

// report publishes a phase change unless a newer invocation has taken over.
func (o *Orchestrator) report(token uuid.UUID, state State, message string) {
	o.mu.Lock()
	if o.current != token {
		o.mu.Unlock()
		return
	}
	o.state = state
	progress := o.progress
	o.mu.Unlock()

	if progress != nil {
		progress(state, message)
	}
}

func isRestrictedURL(pageURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(pageURL))
	for _, scheme := range restrictedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
