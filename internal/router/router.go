package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aigenflow/internal/gateway"
	"aigenflow/internal/logging"
	"aigenflow/internal/tokens"
	"aigenflow/internal/types"
)

// Router errors.
var (
	ErrNoMapping = errors.New("no mapping for task")
)

// Router resolves (phase, task, doc-type) to a provider tag and dispatches
// through a sender. It is the single point where the mapping is consulted;
// tests swap in mock senders here.
type Router struct {
	mapping map[RouteKey]string
	sender  gateway.Sender
	timeout time.Duration

	// Optional accounting. Cached hits are not tracked.
	counter *tokens.Counter
	tracker *tokens.Tracker
}

// WithAccounting attaches token accounting to the dispatch point.
func (r *Router) WithAccounting(counter *tokens.Counter, tracker *tokens.Tracker) *Router {
	r.counter = counter
	r.tracker = tracker
	return r
}

// New creates a router over sender with the given mapping. A nil mapping
// selects the canonical bizplan table.
func New(sender gateway.Sender, mapping map[RouteKey]string, timeout time.Duration) *Router {
	if mapping == nil {
		mapping = DefaultMapping()
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Router{mapping: mapping, sender: sender, timeout: timeout}
}

// Resolve returns the provider tag for a route, or ErrNoMapping.
func (r *Router) Resolve(phase int, task, docType string) (string, error) {
	provider, ok := r.mapping[RouteKey{Phase: phase, Task: task, DocType: docType}]
	if !ok {
		return "", fmt.Errorf("%w: phase=%d task=%s doc_type=%s", ErrNoMapping, phase, task, docType)
	}
	return provider, nil
}

// Execute routes one task to its provider and returns the normalized
// response. Provider failures come back as a failure AgentResponse, not an
// error; the error return covers routing problems and cancellation.
func (r *Router) Execute(ctx context.Context, phase int, task, prompt, docType string) (*types.AgentResponse, error) {
	provider, err := r.Resolve(phase, task, docType)
	if err != nil {
		return nil, err
	}
	logging.RouterDebug("phase=%d task=%s -> %s", phase, task, provider)

	req := gateway.Request{
		TaskName: task,
		Prompt:   prompt,
		Timeout:  r.timeout,
		Phase:    phase,
	}
	resp, err := r.sender.Send(ctx, provider, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return types.FailureResponse(provider, task, err), nil
	}

	out := Normalize(provider, task, resp)
	if r.tracker != nil && out.Success && !CacheHit(resp) {
		inputTokens := 0
		if r.counter != nil {
			inputTokens = r.counter.CountText(prompt, out.Provider).TotalTokens
		}
		r.tracker.Track(out.Provider, inputTokens, out.TokensUsed, phase, task)
	}
	return out, nil
}

// Normalize converts a raw gateway response into an AgentResponse with the
// canonical provider tag. The final provider is preserved when the
// fallback chain answered from a different back end.
func Normalize(provider, task string, resp *gateway.Response) *types.AgentResponse {
	if resp == nil {
		return types.FailureResponse(provider, task, errors.New("empty response"))
	}
	if final, ok := resp.Metadata["final_provider"].(string); ok && final != "" {
		provider = final
	}
	out := &types.AgentResponse{
		Provider:     provider,
		Task:         task,
		Content:      resp.Content,
		TokensUsed:   resp.TokensUsed,
		ResponseTime: resp.ResponseTime,
		Success:      resp.Success,
		Error:        resp.Error,
		Timestamp:    time.Now(),
	}
	if !out.Success {
		out.Content = ""
		if out.Error == "" {
			out.Error = "unknown error"
		}
	}
	return out
}

// CacheHit reports whether a raw response was served from cache. Used by
// callers that must not double-count cached tokens.
func CacheHit(resp *gateway.Response) bool {
	if resp == nil {
		return false
	}
	hit, ok := resp.Metadata["cache_hit"].(bool)
	return ok && hit
}
