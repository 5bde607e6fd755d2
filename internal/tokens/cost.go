package tokens

import (
	"aigenflow/internal/types"
)

// Pricing holds USD prices per one million tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// defaultPricing is the published per-provider price table.
var defaultPricing = map[string]Pricing{
	types.ProviderClaude:     {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	types.ProviderChatGPT:    {InputPerMillion: 10.00, OutputPerMillion: 30.00},
	types.ProviderGemini:     {InputPerMillion: 1.25, OutputPerMillion: 5.00},
	types.ProviderPerplexity: {InputPerMillion: 1.00, OutputPerMillion: 1.00},
}

// CostCalculator computes USD cost for token usage. Custom overrides take
// precedence over the published table; unknown providers cost zero.
type CostCalculator struct {
	overrides map[string]Pricing
}

// NewCostCalculator creates a calculator with the published price table.
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{overrides: make(map[string]Pricing)}
}

// SetPricing overrides pricing for a provider.
func (c *CostCalculator) SetPricing(provider string, p Pricing) {
	c.overrides[provider] = p
}

// PricingFor returns the effective pricing for a provider.
func (c *CostCalculator) PricingFor(provider string) (Pricing, bool) {
	if p, ok := c.overrides[provider]; ok {
		return p, true
	}
	p, ok := defaultPricing[provider]
	return p, ok
}

// Calculate returns the USD cost for the given input/output token counts.
func (c *CostCalculator) Calculate(inputTokens, outputTokens int, provider string) float64 {
	p, ok := c.PricingFor(provider)
	if !ok {
		return 0
	}
	in := float64(inputTokens) / 1_000_000 * p.InputPerMillion
	out := float64(outputTokens) / 1_000_000 * p.OutputPerMillion
	return in + out
}
