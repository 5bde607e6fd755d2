// Package gateway defines the provider contract for browser-automated LLM
// back ends and a go-rod implementation that drives provider web UIs.
package gateway

import (
	"context"
	"time"
)

// Request is a single prompt submission to a provider.
type Request struct {
	TaskName  string        `json:"task_name"`
	Prompt    string        `json:"prompt"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Timeout   time.Duration `json:"timeout"`

	// Cache-key hints; not sent to the provider.
	Phase int    `json:"phase,omitempty"`
	Model string `json:"model,omitempty"`
}

// Response is the raw provider outcome before normalization.
type Response struct {
	Content      string         `json:"content"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	TokensUsed   int            `json:"tokens_used"`
	ResponseTime float64        `json:"response_time"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// WithMeta returns the response with a metadata key set, allocating the map
// on first use.
func (r *Response) WithMeta(key string, value any) *Response {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// Provider is an opaque LLM back end reached through browser automation.
// Each provider instance serializes its own concurrent callers.
type Provider interface {
	Name() string
	SendMessage(ctx context.Context, req Request) (*Response, error)
	CheckSession(ctx context.Context) bool
	LoginFlow(ctx context.Context) error
	SaveSession() error
	LoadSession() bool
}

// Sender dispatches a request to a provider by tag. It is the indirection
// point where caching and fallback wrap the raw registry.
type Sender interface {
	Send(ctx context.Context, provider string, req Request) (*Response, error)
}
