package fallback

import (
	"context"
	"strings"

	"aigenflow/internal/gateway"
)

// Decision is the outcome classification for one attempt.
type Decision int

const (
	DecisionSuccess Decision = iota
	DecisionRetry
	DecisionFallback
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionSuccess:
		return "success"
	case DecisionRetry:
		return "retry"
	case DecisionFallback:
		return "fallback"
	default:
		return "fail"
	}
}

// FailureReason classifies why an attempt failed.
type FailureReason string

const (
	ReasonTimeout    FailureReason = "timeout"
	ReasonConnection FailureReason = "connection"
	ReasonRateLimit  FailureReason = "rate_limit"
	ReasonResponse   FailureReason = "response_error"
	ReasonUnknown    FailureReason = "unknown"
)

// classify derives the failure reason from the attempt's error or failed
// response.
func classify(resp *gateway.Response, err error) FailureReason {
	msg := ""
	if err != nil {
		if err == context.DeadlineExceeded || strings.Contains(err.Error(), context.DeadlineExceeded.Error()) {
			return ReasonTimeout
		}
		msg = err.Error()
	} else if resp != nil {
		msg = resp.Error
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") || strings.Contains(lower, "deadline"):
		return ReasonTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "connect") || strings.Contains(lower, "network"):
		return ReasonConnection
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "429"):
		return ReasonRateLimit
	case resp != nil && !resp.Success:
		return ReasonResponse
	default:
		return ReasonUnknown
	}
}

// decide applies the decision rules to one attempt's outcome.
//   - success response -> SUCCESS
//   - attempts left on this provider -> RETRY
//   - a next provider exists and fallback budget remains -> FALLBACK
//   - otherwise -> FAIL
func (c *Chain) decide(resp *gateway.Response, err error, fc *Context) Decision {
	if err == nil && resp != nil && resp.Success {
		return DecisionSuccess
	}
	fc.Errors = append(fc.Errors, attemptError{
		Provider: fc.Provider,
		Reason:   classify(resp, err),
		Message:  errorMessage(resp, err),
	})
	if fc.Attempt <= c.maxRetries {
		return DecisionRetry
	}
	if c.nextProvider(fc.Provider) != "" && fc.Fallbacks < c.maxFallbacks {
		return DecisionFallback
	}
	return DecisionFail
}

func errorMessage(resp *gateway.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil && resp.Error != "" {
		return resp.Error
	}
	return "unknown error"
}
