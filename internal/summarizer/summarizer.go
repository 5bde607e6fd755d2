// Package summarizer compresses accumulated phase context before it is
// carried into the next phase. Summarization is advisory: any failure
// degrades to passing the original text through.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aigenflow/internal/gateway"
	"aigenflow/internal/logging"
	"aigenflow/internal/tokens"
	"aigenflow/internal/types"
)

// Summarizer defaults.
const (
	DefaultThreshold   = 0.8
	DefaultTargetRatio = 0.5
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = time.Second

	// Texts below this length pass through untouched.
	minSummarizeChars = 100

	// Per-response excerpt length when building phase context.
	excerptChars = 500
)

// summaryProvider answers summarization requests.
const summaryProvider = types.ProviderClaude

// Result is the outcome of one summarization attempt. Success false means
// the original text was kept; the pipeline proceeds either way.
type Result struct {
	OriginalText   string  `json:"original_text"`
	SummaryText    string  `json:"summary_text"`
	TokensOriginal int     `json:"tokens_original"`
	TokensSummary  int     `json:"tokens_summary"`
	ReductionRatio float64 `json:"reduction_ratio"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
}

// Options tune the summarizer. Zero values select the defaults;
// Disabled turns the summarizer into a pass-through.
type Options struct {
	Disabled    bool
	Threshold   float64
	TargetRatio float64
	MaxRetries  int
	RetryDelay  time.Duration
}

// Summarizer gates on estimated token pressure and summarizes through a
// backing provider.
type Summarizer struct {
	sender  gateway.Sender
	counter *tokens.Counter
	opts    Options
}

// New creates a summarizer over sender.
func New(sender gateway.Sender, counter *tokens.Counter, opts Options) *Summarizer {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.TargetRatio <= 0 {
		opts.TargetRatio = DefaultTargetRatio
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if counter == nil {
		counter = tokens.NewCounter()
	}
	return &Summarizer{sender: sender, counter: counter, opts: opts}
}

// BuildContext flattens prior phase results into carry-over context.
// Each successful response contributes an excerpt of at most 500
// characters; failed responses are skipped.
func BuildContext(results []*types.PhaseResult) string {
	var sb strings.Builder
	for _, pr := range results {
		if pr == nil {
			continue
		}
		for _, resp := range pr.Responses {
			if resp == nil || !resp.Success || resp.Content == "" {
				continue
			}
			excerpt := resp.Content
			if len(excerpt) > excerptChars {
				excerpt = excerpt[:excerptChars]
			}
			fmt.Fprintf(&sb, "[phase %d / %s]\n%s\n\n", pr.Phase, resp.Task, excerpt)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ShouldSummarize reports whether text exceeds the pressure threshold
// for the provider's context window.
func (s *Summarizer) ShouldSummarize(text, provider string) bool {
	if s.opts.Disabled {
		return false
	}
	estimated := s.counter.CountText(text, provider).TotalTokens
	limit := tokens.WindowLimit(provider)
	return float64(estimated) >= s.opts.Threshold*float64(limit)
}

// Summarize compresses text through the backing provider. It never
// fails the caller: on error or disabled summarizer the result carries
// the original text with Success false (or true for the short-text
// pass-through).
func (s *Summarizer) Summarize(ctx context.Context, text string) *Result {
	original := s.counter.CountText(text, summaryProvider).TotalTokens
	res := &Result{
		OriginalText:   text,
		SummaryText:    text,
		TokensOriginal: original,
		TokensSummary:  original,
		ReductionRatio: 1,
	}

	if s.opts.Disabled {
		res.Success = true
		return res
	}
	if len(strings.TrimSpace(text)) < minSummarizeChars {
		res.Success = true
		return res
	}

	req := gateway.Request{
		TaskName: "context_summary",
		Prompt:   s.buildPrompt(text),
	}

	var lastErr string
	for attempt := 1; attempt <= s.opts.MaxRetries+1; attempt++ {
		resp, err := s.sender.Send(ctx, summaryProvider, req)
		if err == nil && resp != nil && resp.Success && strings.TrimSpace(resp.Content) != "" {
			res.SummaryText = resp.Content
			res.TokensSummary = s.counter.CountText(resp.Content, summaryProvider).TotalTokens
			if res.TokensOriginal > 0 {
				res.ReductionRatio = float64(res.TokensSummary) / float64(res.TokensOriginal)
			}
			res.Success = true
			logging.Summarizer("summarized %d -> %d tokens (ratio %.2f)",
				res.TokensOriginal, res.TokensSummary, res.ReductionRatio)
			return res
		}
		lastErr = summarizeError(resp, err)
		logging.SummarizerDebug("attempt %d failed: %s", attempt, lastErr)

		if attempt <= s.opts.MaxRetries {
			delay := s.opts.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				res.Error = ctx.Err().Error()
				return res
			case <-time.After(delay):
			}
		}
	}

	res.Error = lastErr
	logging.Summarizer("summarization failed, keeping original context: %s", lastErr)
	return res
}

func (s *Summarizer) buildPrompt(text string) string {
	target := int(s.opts.TargetRatio * 100)
	return fmt.Sprintf(`Summarize the working context below to roughly %d%% of its length.
Preserve verbatim: decisions made, numeric metrics, citations, and action items.
Drop conversational filler and repetition. Return only the summary.

---
%s`, target, text)
}

func summarizeError(resp *gateway.Response, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case resp == nil:
		return "empty response"
	case resp.Error != "":
		return resp.Error
	default:
		return "empty summary"
	}
}
