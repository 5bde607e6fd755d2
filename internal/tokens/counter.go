// Package tokens provides token estimation, cost attribution, and budget
// reporting for pipeline provider calls.
package tokens

import (
	"aigenflow/internal/types"
)

// Count is the result of a token count.
type Count struct {
	TotalTokens int    `json:"total_tokens"`
	Estimated   bool   `json:"estimated"`
	ModelName   string `json:"model_name"`
}

// charsPerToken is the estimation divisor for the heuristic counter.
const charsPerToken = 4

// Context-window limits per provider, in tokens.
var windowLimits = map[string]int{
	types.ProviderClaude:     200_000,
	types.ProviderGemini:     1_000_000,
	types.ProviderChatGPT:    128_000,
	types.ProviderPerplexity: 128_000,
}

// DefaultWindowLimit applies to unknown providers.
const DefaultWindowLimit = 100_000

// WindowLimit returns the context-window limit for a provider tag.
func WindowLimit(provider string) int {
	if limit, ok := windowLimits[provider]; ok {
		return limit
	}
	return DefaultWindowLimit
}

// Counter estimates token counts for arbitrary text. The heuristic is
// 4 characters per token with a floor of 1 for non-empty text; results are
// always flagged as estimated.
type Counter struct{}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{}
}

// CountText estimates the token count of text for the given model.
func (c *Counter) CountText(text, model string) Count {
	n := len(text) / charsPerToken
	if n < 1 {
		n = 1
	}
	return Count{TotalTokens: n, Estimated: true, ModelName: model}
}
