package fallback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aigenflow/internal/gateway"
	"aigenflow/internal/logging"
	"aigenflow/internal/types"
)

// Defaults for the fallback chain.
const (
	DefaultMaxRetries       = 2
	DefaultMaxFallbacks     = 3
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 60 * time.Second
	defaultRetryDelay       = time.Second
)

// DefaultOrder is the default provider fallback order.
var DefaultOrder = []string{
	types.ProviderClaude,
	types.ProviderGemini,
	types.ProviderChatGPT,
	types.ProviderPerplexity,
}

// attemptError records one failed attempt.
type attemptError struct {
	Provider string
	Reason   FailureReason
	Message  string
}

// Context is the per-request fallback state. One per Execute; Attempt and
// Fallbacks never decrease.
type Context struct {
	Request   gateway.Request
	Provider  string
	Attempt   int // 1-based within the current provider
	Errors    []attemptError
	StartTime time.Time
	Fallbacks int
	Total     int // attempts across all providers
}

// Options configures a Chain. Zero values select the defaults; pass
// MaxRetries -1 for no per-provider retries.
type Options struct {
	Providers      []string
	MaxRetries     int
	MaxFallbacks   int
	BreakerEnabled bool
	Threshold      int
	BreakerTimeout time.Duration
	RetryDelay     time.Duration
}

// Chain executes requests against an ordered provider list with retries,
// fallback transitions, and circuit breaking. It implements
// gateway.Sender.
type Chain struct {
	providers    []string
	sender       gateway.Sender
	maxRetries   int
	maxFallbacks int
	breaker      *Breaker
	retryDelay   time.Duration
}

// NewChain creates a fallback chain over sender.
func NewChain(sender gateway.Sender, opts Options) *Chain {
	if len(opts.Providers) == 0 {
		opts.Providers = DefaultOrder
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	} else if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxFallbacks == 0 {
		opts.MaxFallbacks = DefaultMaxFallbacks
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultBreakerThreshold
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = DefaultBreakerTimeout
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	c := &Chain{
		providers:    opts.Providers,
		sender:       sender,
		maxRetries:   opts.MaxRetries,
		maxFallbacks: opts.MaxFallbacks,
		retryDelay:   opts.RetryDelay,
	}
	if opts.BreakerEnabled {
		c.breaker = NewBreaker(opts.Threshold, opts.BreakerTimeout)
	}
	return c
}

// Breaker exposes the circuit breaker (nil when disabled).
func (c *Chain) Breaker() *Breaker {
	return c.breaker
}

// nextProvider returns the provider after current in the configured order,
// or "" when current is last (or unknown).
func (c *Chain) nextProvider(current string) string {
	for i, p := range c.providers {
		if p == current && i+1 < len(c.providers) {
			return c.providers[i+1]
		}
	}
	return ""
}

// Send implements gateway.Sender.
func (c *Chain) Send(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	return c.Execute(ctx, provider, req)
}

// Execute runs the per-request state machine starting at provider. A
// synthesized failure response is returned when every option is exhausted;
// the error return is reserved for context cancellation.
func (c *Chain) Execute(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	fc := &Context{
		Request:   req,
		Provider:  provider,
		Attempt:   1,
		StartTime: time.Now(),
	}
	original := provider

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// An open circuit skips straight to the next provider.
		if c.breaker != nil && !c.breaker.Allow(fc.Provider) {
			logging.Fallback("circuit open for %s, skipping", fc.Provider)
			fc.Errors = append(fc.Errors, attemptError{
				Provider: fc.Provider,
				Reason:   ReasonConnection,
				Message:  fmt.Sprintf("circuit open for %s", fc.Provider),
			})
			next := c.nextProvider(fc.Provider)
			if next == "" || fc.Fallbacks >= c.maxFallbacks {
				return c.failureResponse(fc, original), nil
			}
			fc.Provider = next
			fc.Attempt = 1
			fc.Fallbacks++
			continue
		}

		fc.Total++
		resp, err := c.sender.Send(ctx, fc.Provider, fc.Request)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch c.decide(resp, err, fc) {
		case DecisionSuccess:
			if c.breaker != nil {
				c.breaker.RecordSuccess(fc.Provider)
			}
			if fc.Fallbacks > 0 || fc.Provider != original {
				resp.WithMeta("fallback_used", true)
				resp.WithMeta("original_provider", original)
				resp.WithMeta("final_provider", fc.Provider)
			}
			return resp, nil

		case DecisionRetry:
			logging.FallbackDebug("%s attempt %d failed, retrying", fc.Provider, fc.Attempt)
			fc.Attempt++
			if err := c.sleep(ctx, fc.Attempt); err != nil {
				return nil, err
			}

		case DecisionFallback:
			if c.breaker != nil {
				c.breaker.RecordFailure(fc.Provider)
			}
			next := c.nextProvider(fc.Provider)
			logging.Fallback("falling back %s -> %s after %d attempts", fc.Provider, next, fc.Attempt)
			fc.Provider = next
			fc.Attempt = 1
			fc.Fallbacks++

		case DecisionFail:
			if c.breaker != nil {
				c.breaker.RecordFailure(fc.Provider)
			}
			return c.failureResponse(fc, original), nil
		}
	}
}

// sleep waits the cancellable between-retry delay.
func (c *Chain) sleep(ctx context.Context, attempt int) error {
	if c.retryDelay <= 0 {
		return nil
	}
	delay := c.retryDelay * time.Duration(attempt-1)
	if delay <= 0 {
		delay = c.retryDelay
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// failureResponse synthesizes the terminal failure, concatenating the last
// few attempt errors.
func (c *Chain) failureResponse(fc *Context, original string) *gateway.Response {
	msgs := fc.Errors
	if len(msgs) > 3 {
		msgs = msgs[len(msgs)-3:]
	}
	parts := make([]string, 0, len(msgs))
	for _, e := range msgs {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Reason))
	}
	resp := &gateway.Response{
		Success:      false,
		Error:        fmt.Sprintf("all providers exhausted: %s", strings.Join(parts, "; ")),
		ResponseTime: time.Since(fc.StartTime).Seconds(),
	}
	resp.WithMeta("original_provider", original)
	resp.WithMeta("fallback_count", fc.Fallbacks)
	resp.WithMeta("total_attempts", fc.Total)
	return resp
}
