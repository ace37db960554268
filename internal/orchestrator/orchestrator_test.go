package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hercule-app/hercule/internal/agent"
	"github.com/hercule-app/hercule/internal/core"
)

type fakeTransport struct {
	mu           sync.Mutex
	sendFailures int
	sends        int
	injects      int
	injectErr    error
	response     agent.Response
}

func (t *fakeTransport) Send(_ context.Context, _ agent.Request) (agent.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends++
	if t.sends <= t.sendFailures {
		return agent.Response{}, errors.New("no receiver")
	}
	return t.response, nil
}

func (t *fakeTransport) Inject(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.injects++
	return t.injectErr
}

type fakeClient struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	result *core.AnalysisResult
	delay  time.Duration
}

func (c *fakeClient) Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
	c.mu.Lock()
	call := c.calls
	c.calls++
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, core.ErrTimeout("timed out").WithCause(ctx.Err())
		}
	}
	if call < len(c.errs) && c.errs[call] != nil {
		return nil, c.errs[call]
	}
	r := *c.result
	return &r, nil
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
	msgs   []string
}

func (r *stateRecorder) record(state State, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	r.msgs = append(r.msgs, msg)
}

func (r *stateRecorder) sequence() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *stateRecorder) lastMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

func goodResponse() agent.Response {
	return agent.Response{
		Success:    true,
		PolicyText: "We collect and share your data.",
		PolicyURL:  "https://example.com/privacy",
	}
}

func goodResult() *core.AnalysisResult {
	return &core.AnalysisResult{Score: 60, Summary: "ok"}
}

func newTestOrchestrator(t *fakeTransport, c AnalysisClient, rec *stateRecorder, opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetryPolicy(&RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}),
	}
	if rec != nil {
		base = append(base, WithProgress(rec.record))
	}
	return New(t, c, append(base, opts...)...)
}

func TestRunHappyPath(t *testing.T) {
	transport := &fakeTransport{response: goodResponse()}
	client := &fakeClient{result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	res, err := o.Run(context.Background(), "https://example.com/privacy")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Score != 60 {
		t.Errorf("score = %d", res.Score)
	}

	want := []State{StateExtracting, StateExtracted, StateAnalyzing, StateSucceeded}
	got := rec.sequence()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
	if transport.injects != 0 {
		t.Errorf("injected %d times on healthy transport", transport.injects)
	}
}

func TestRunRestrictedPage(t *testing.T) {
	for _, url := range []string{
		"chrome://settings",
		"chrome-extension://abc/popup.html",
		"about:blank",
		"edge://flags",
		"moz-extension://xyz",
		"devtools://devtools",
	} {
		transport := &fakeTransport{response: goodResponse()}
		client := &fakeClient{result: goodResult()}
		o := newTestOrchestrator(transport, client, nil)

		_, err := o.Run(context.Background(), url)
		if err == nil {
			t.Fatalf("Run(%q) succeeded, want restricted failure", url)
		}
		if !core.IsCategory(err, core.ErrCatRestricted) {
			t.Errorf("Run(%q) category = %v", url, core.GetCategory(err))
		}
		if transport.sends != 0 {
			t.Errorf("Run(%q) performed %d extraction calls", url, transport.sends)
		}
		if client.callCount() != 0 {
			t.Errorf("Run(%q) performed %d analysis calls", url, client.callCount())
		}
		if o.State() != StateFailed {
			t.Errorf("Run(%q) state = %v", url, o.State())
		}
	}
}

func TestRunInjectsOnceThenSucceeds(t *testing.T) {
	transport := &fakeTransport{sendFailures: 1, response: goodResponse()}
	client := &fakeClient{result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	_, err := o.Run(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if transport.injects != 1 {
		t.Errorf("injects = %d, want 1", transport.injects)
	}
	if transport.sends != 2 {
		t.Errorf("sends = %d, want 2", transport.sends)
	}

	sawInjecting := false
	for _, s := range rec.sequence() {
		if s == StateInjecting {
			sawInjecting = true
		}
	}
	if !sawInjecting {
		t.Error("injecting state never reported")
	}
}

func TestRunSecondDeliveryFailureTerminal(t *testing.T) {
	transport := &fakeTransport{sendFailures: 2, response: goodResponse()}
	client := &fakeClient{result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	_, err := o.Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Run succeeded, want communication failure")
	}
	if !core.IsCategory(err, core.ErrCatCommunication) {
		t.Errorf("category = %v", core.GetCategory(err))
	}
	if transport.injects != 1 {
		t.Errorf("injects = %d, want exactly 1", transport.injects)
	}
	if !strings.Contains(rec.lastMessage(), "cannot access this page") {
		t.Errorf("failure message = %q", rec.lastMessage())
	}
	if client.callCount() != 0 {
		t.Errorf("analysis attempted after terminal extraction failure")
	}
}

func TestRunAgentReportedFailureNotRetried(t *testing.T) {
	transport := &fakeTransport{response: agent.Response{Success: false, Error: "page contains no readable text"}}
	client := &fakeClient{result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	_, err := o.Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Run succeeded, want extraction failure")
	}
	if transport.sends != 1 {
		t.Errorf("sends = %d, want 1 (no retry on reported failure)", transport.sends)
	}
	if !strings.Contains(rec.lastMessage(), "page contains no readable text") {
		t.Errorf("failure message = %q, want agent message propagated", rec.lastMessage())
	}
}

func TestRunAnalysisRetriesThenSucceeds(t *testing.T) {
	transport := &fakeTransport{response: goodResponse()}
	client := &fakeClient{
		errs:   []error{core.ErrUpstream(core.CodeServiceDown, "service unavailable"), core.ErrUpstream(core.CodeServiceDown, "service unavailable")},
		result: goodResult(),
	}

	o := newTestOrchestrator(transport, client, nil)
	res, err := o.Run(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res == nil {
		t.Fatal("nil result")
	}
	if client.callCount() != 3 {
		t.Errorf("analysis calls = %d, want 3", client.callCount())
	}
}

func TestRunAnalysisExhaustionSurfacesLastError(t *testing.T) {
	upstreamErr := core.ErrUpstream(core.CodeAnalysisFailed, "model is overloaded")
	transport := &fakeTransport{response: goodResponse()}
	client := &fakeClient{errs: []error{upstreamErr, upstreamErr, upstreamErr}, result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	_, err := o.Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Run succeeded, want exhaustion failure")
	}
	if client.callCount() != 3 {
		t.Errorf("analysis calls = %d, want 3", client.callCount())
	}
	if !strings.Contains(rec.lastMessage(), "model is overloaded") {
		t.Errorf("failure message = %q, want last error verbatim", rec.lastMessage())
	}
}

func TestRunTimeoutNeverRetried(t *testing.T) {
	transport := &fakeTransport{response: goodResponse()}
	client := &fakeClient{errs: []error{core.ErrTimeout("timed out")}, result: goodResult()}
	rec := &stateRecorder{}

	o := newTestOrchestrator(transport, client, rec)
	_, err := o.Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Run succeeded, want timeout failure")
	}
	if !core.IsCategory(err, core.ErrCatTimeout) {
		t.Errorf("category = %v", core.GetCategory(err))
	}
	if client.callCount() != 1 {
		t.Errorf("analysis calls = %d, want 1 (timeouts are terminal)", client.callCount())
	}
	if !strings.Contains(rec.lastMessage(), "timed out") {
		t.Errorf("failure message = %q", rec.lastMessage())
	}
}

func TestRunAnalysisPhaseDeadline(t *testing.T) {
	transport := &fakeTransport{response: goodResponse()}
	client := &fakeClient{result: goodResult(), delay: time.Second}

	o := newTestOrchestrator(transport, client, nil, WithAnalysisTimeout(20*time.Millisecond))
	_, err := o.Run(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Run succeeded, want deadline failure")
	}
	if !core.IsCategory(err, core.ErrCatTimeout) {
		t.Errorf("category = %v", core.GetCategory(err))
	}
}

func TestRunStaleInvocationCannotOverwriteState(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	transport := &fakeTransport{response: goodResponse()}
	rec := &stateRecorder{}
	client := analyzeFunc(func(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
		// Block only the first invocation inside the analysis phase.
		blocked := false
		once.Do(func() {
			blocked = true
			close(entered)
			<-release
		})
		if blocked {
			// Terminal failure for the superseded run.
			return nil, core.ErrTimeout("timed out")
		}
		return goodResult(), nil
	})

	o := newTestOrchestrator(transport, client, rec)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		o.Run(context.Background(), "https://example.com/first")
	}()

	<-entered
	if _, err := o.Run(context.Background(), "https://example.com/second"); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if o.State() != StateSucceeded {
		t.Fatalf("state after second run = %v", o.State())
	}

	// The superseded run finishes with a terminal failure, which must not
	// reach the shared state or the progress sink.
	close(release)
	<-firstDone
	if o.State() != StateSucceeded {
		t.Errorf("stale invocation overwrote state: %v", o.State())
	}
	for _, s := range rec.sequence() {
		if s == StateFailed {
			t.Error("stale failure reached the progress sink")
		}
	}
}

type analyzeFunc func(ctx context.Context, text, url string) (*core.AnalysisResult, error)

func (f analyzeFunc) Analyze(ctx context.Context, text, url string) (*core.AnalysisResult, error) {
	return f(ctx, text, url)
}
