// Package fallback implements per-request retry/fallback across an ordered
// provider list, guarded by per-provider circuit breakers.
package fallback

import (
	"sync"
	"time"

	"aigenflow/internal/logging"
)

// CircuitState is the breaker state for one provider.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

type circuit struct {
	state       CircuitState
	failures    int
	lastFailure time.Time
}

// Breaker tracks circuit state per provider. Process-wide and
// mutex-guarded; the clock is injectable for tests.
type Breaker struct {
	mu        sync.Mutex
	circuits  map[string]*circuit
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after timeout.
func NewBreaker(threshold int, timeout time.Duration) *Breaker {
	return &Breaker{
		circuits:  make(map[string]*circuit),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (b *Breaker) get(provider string) *circuit {
	c, ok := b.circuits[provider]
	if !ok {
		c = &circuit{state: CircuitClosed}
		b.circuits[provider] = c
	}
	return c
}

// Allow reports whether a call to provider may proceed. An open circuit
// whose timeout has elapsed transitions to half-open and allows one probe.
func (b *Breaker) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(provider)
	switch c.state {
	case CircuitOpen:
		if b.now().Sub(c.lastFailure) >= b.timeout {
			c.state = CircuitHalfOpen
			logging.Fallback("circuit %s: open -> half_open", provider)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the circuit and resets the failure counter.
func (b *Breaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(provider)
	if c.state != CircuitClosed {
		logging.Fallback("circuit %s: %s -> closed", provider, c.state)
	}
	c.state = CircuitClosed
	c.failures = 0
}

// RecordFailure counts a failure; the circuit opens at the threshold, and a
// failed half-open probe reopens it immediately.
func (b *Breaker) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.get(provider)
	c.failures++
	c.lastFailure = b.now()

	if c.state == CircuitHalfOpen || c.failures >= b.threshold {
		if c.state != CircuitOpen {
			logging.Fallback("circuit %s: %s -> open (%d consecutive failures)", provider, c.state, c.failures)
		}
		c.state = CircuitOpen
	}
}

// State returns the current circuit state for a provider.
func (b *Breaker) State(provider string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(provider).state
}
