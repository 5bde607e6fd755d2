package fallback

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure("claude")
	}
	if got := b.State("claude"); got != CircuitClosed {
		t.Fatalf("state = %s, want closed below threshold", got)
	}

	b.RecordFailure("claude")
	if got := b.State("claude"); got != CircuitOpen {
		t.Fatalf("state = %s, want open at threshold", got)
	}
	if b.Allow("claude") {
		t.Fatal("open circuit must block")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure("gemini")
	if b.Allow("gemini") {
		t.Fatal("fresh open circuit must block")
	}

	now = now.Add(2 * time.Minute)
	if !b.Allow("gemini") {
		t.Fatal("elapsed timeout must allow a probe")
	}
	if got := b.State("gemini"); got != CircuitHalfOpen {
		t.Fatalf("state = %s, want half_open", got)
	}
}

func TestBreakerHalfOpenOutcomes(t *testing.T) {
	newHalfOpen := func() *Breaker {
		b := NewBreaker(1, time.Minute)
		now := time.Now()
		b.now = func() time.Time { return now }
		b.RecordFailure("p")
		now = now.Add(2 * time.Minute)
		b.now = func() time.Time { return now }
		b.Allow("p")
		return b
	}

	b := newHalfOpen()
	b.RecordSuccess("p")
	if got := b.State("p"); got != CircuitClosed {
		t.Fatalf("after probe success: %s, want closed", got)
	}

	b = newHalfOpen()
	b.RecordFailure("p")
	if got := b.State("p"); got != CircuitOpen {
		t.Fatalf("after probe failure: %s, want open", got)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	b.RecordFailure("p")
	b.RecordFailure("p")
	b.RecordSuccess("p")
	b.RecordFailure("p")
	b.RecordFailure("p")
	if got := b.State("p"); got != CircuitClosed {
		t.Fatalf("state = %s, failures must reset on success", got)
	}
}

func TestBreakerIsolatesProviders(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	b.RecordFailure("claude")
	if b.State("claude") != CircuitOpen {
		t.Fatal("claude should be open")
	}
	if b.State("gemini") != CircuitClosed {
		t.Fatal("gemini must be unaffected")
	}
	if !b.Allow("gemini") {
		t.Fatal("gemini must still allow calls")
	}
}
