package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/hercule-app/hercule/internal/agent"
)

// PageLoader fetches the target page and returns its URL and raw HTML.
type PageLoader func(ctx context.Context) (url string, html string, err error)

// LocalTransport drives an in-process agent. The agent starts without a
// page; Inject runs the loader and hands the document to the agent, after
// which requests can be delivered.
type LocalTransport struct {
	agent  *agent.Agent
	loader PageLoader

	mu       sync.Mutex
	injected bool
}

// NewLocalTransport creates a transport around an in-process agent.
func NewLocalTransport(a *agent.Agent, loader PageLoader) *LocalTransport {
	return &LocalTransport{agent: a, loader: loader}
}

// Send delivers a request to the agent. Delivery fails until the agent has
// been injected.
func (t *LocalTransport) Send(ctx context.Context, req agent.Request) (agent.Response, error) {
	t.mu.Lock()
	injected := t.injected
	t.mu.Unlock()

	if !injected {
		return agent.Response{}, errors.New("agent not present in page")
	}
	return t.agent.Handle(ctx, req), nil
}

// Inject loads the page into the agent.
func (t *LocalTransport) Inject(ctx context.Context) error {
	url, html, err := t.loader(ctx)
	if err != nil {
		return err
	}
	t.agent.LoadPage(url, html)

	t.mu.Lock()
	t.injected = true
	t.mu.Unlock()
	return nil
}
