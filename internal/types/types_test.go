package types

import (
	"errors"
	"testing"
)

func TestPhaseState(t *testing.T) {
	if PhaseState(1) != StatePhase1 || PhaseState(5) != StatePhase5 {
		t.Fatalf("phase state tags wrong: %s, %s", PhaseState(1), PhaseState(5))
	}
}

func TestPhaseStatusTerminal(t *testing.T) {
	terminal := []PhaseStatus{PhaseCompleted, PhaseFailed, PhaseSkipped}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []PhaseStatus{PhasePending, PhaseInProgress} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestPhaseNamesCoverAllPhases(t *testing.T) {
	for n := 1; n <= PhaseCount; n++ {
		if PhaseNames[n] == "" {
			t.Fatalf("phase %d has no name", n)
		}
	}
}

func TestFailureResponse(t *testing.T) {
	r := FailureResponse(ProviderClaude, "polish_claude", errors.New("boom"))
	if r.Success {
		t.Fatal("failure response marked successful")
	}
	if r.Error != "boom" || r.Content != "" {
		t.Fatalf("response = %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Fatal("timestamp missing")
	}

	if FailureResponse("p", "t", nil).Error == "" {
		t.Fatal("nil error must yield a default message")
	}
}
