package tokens

import (
	"strings"
	"testing"

	"aigenflow/internal/types"
)

func TestCountText(t *testing.T) {
	c := NewCounter()

	got := c.CountText(strings.Repeat("a", 400), types.ProviderClaude)
	if got.TotalTokens != 100 {
		t.Fatalf("tokens = %d, want 100", got.TotalTokens)
	}
	if !got.Estimated {
		t.Fatal("heuristic counts must be flagged estimated")
	}
	if got.ModelName != types.ProviderClaude {
		t.Fatalf("model = %s", got.ModelName)
	}
}

func TestCountTextFloor(t *testing.T) {
	c := NewCounter()
	for _, text := range []string{"", "a", "abc"} {
		if got := c.CountText(text, "x").TotalTokens; got != 1 {
			t.Fatalf("CountText(%q) = %d, want floor of 1", text, got)
		}
	}
}

func TestWindowLimits(t *testing.T) {
	cases := map[string]int{
		types.ProviderClaude:     200_000,
		types.ProviderGemini:     1_000_000,
		types.ProviderChatGPT:    128_000,
		types.ProviderPerplexity: 128_000,
		"unknown":                DefaultWindowLimit,
	}
	for provider, want := range cases {
		if got := WindowLimit(provider); got != want {
			t.Fatalf("WindowLimit(%s) = %d, want %d", provider, got, want)
		}
	}
}
