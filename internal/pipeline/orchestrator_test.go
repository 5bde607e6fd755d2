package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"aigenflow/internal/prompt"
	"aigenflow/internal/router"
	"aigenflow/internal/types"
)

func newTestOrchestrator(t *testing.T, sender *fakeSender) *Orchestrator {
	t.Helper()
	rt := router.New(sender, nil, 0)
	exec := NewExecutor(rt, prompt.NewRenderer())
	return NewOrchestrator(exec, rt, nil, t.TempDir())
}

func testConfig() types.SessionConfig {
	return types.SessionConfig{
		Topic:    "AI-assisted logistics startup",
		DocType:  "bizplan",
		Language: "English",
	}
}

func TestRunPipelineCompletes(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, sender)

	session, err := o.RunPipeline(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if session.State != types.StateCompleted {
		t.Fatalf("state = %s, want completed", session.State)
	}
	if session.CurrentPhase != types.PhaseCount {
		t.Fatalf("cursor = %d, want %d", session.CurrentPhase, types.PhaseCount)
	}

	wantCounts := []int{2, 2, 2, 3, 3}
	if len(session.Results) != len(wantCounts) {
		t.Fatalf("results = %d, want %d", len(session.Results), len(wantCounts))
	}
	for i, pr := range session.Results {
		if pr.Phase != i+1 {
			t.Fatalf("result %d has phase %d", i, pr.Phase)
		}
		if pr.Status != types.PhaseCompleted {
			t.Fatalf("phase %d status = %s", pr.Phase, pr.Status)
		}
		if len(pr.Responses) != wantCounts[i] {
			t.Fatalf("phase %d responses = %d, want %d", pr.Phase, len(pr.Responses), wantCounts[i])
		}
		if pr.CompletedAt.IsZero() {
			t.Fatalf("phase %d missing completion time", pr.Phase)
		}
	}
}

func TestRunPipelinePersistsFiles(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, sender)

	session, err := o.RunPipeline(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	dir := o.SessionDir(session.ID)

	if _, err := os.Stat(filepath.Join(dir, StateFileName)); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
	for k := 1; k <= types.PhaseCount; k++ {
		if _, err := os.Stat(filepath.Join(dir, PhaseResultsFile(k))); err != nil {
			t.Fatalf("phase %d results file missing: %v", k, err)
		}
	}

	loaded, err := LoadSession(dir)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.ID != session.ID || loaded.State != types.StateCompleted {
		t.Fatalf("persisted session mismatch: %+v", loaded)
	}
	if len(loaded.Results) != types.PhaseCount {
		t.Fatalf("persisted results = %d", len(loaded.Results))
	}
}

func TestRunPipelineStopsAtFailedPhase(t *testing.T) {
	sender := &fakeSender{}
	sender.setFailing(router.TaskFactCheckPerplexity)
	o := newTestOrchestrator(t, sender)

	session, err := o.RunPipeline(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if session.State != types.StateFailed {
		t.Fatalf("state = %s, want failed", session.State)
	}
	if len(session.Results) != 2 {
		t.Fatalf("results = %d, want 2 (phases 3-5 must not run)", len(session.Results))
	}
	if session.Results[1].Status != types.PhaseFailed {
		t.Fatalf("phase 2 status = %s", session.Results[1].Status)
	}
	// The healthy task of the failed phase still ran.
	if !session.Results[1].Responses[0].Success {
		t.Fatal("deep search should have succeeded inside the failed phase")
	}
	if session.CurrentPhase != 1 {
		t.Fatalf("cursor = %d, want 1 so resume re-runs phase 2", session.CurrentPhase)
	}
}

func TestResumeAfterFailure(t *testing.T) {
	sender := &fakeSender{}
	sender.setFailing(router.TaskFactCheckPerplexity)
	o := newTestOrchestrator(t, sender)

	session, err := o.RunPipeline(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}

	sender.setFailing() // provider recovered
	resumed, err := o.ResumeSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if resumed.State != types.StateCompleted {
		t.Fatalf("state = %s, want completed", resumed.State)
	}
	if len(resumed.Results) != types.PhaseCount {
		t.Fatalf("results = %d, want %d", len(resumed.Results), types.PhaseCount)
	}
	// The failed phase 2 was replaced by a fresh, successful result.
	if resumed.Results[1].Phase != 2 || resumed.Results[1].Status != types.PhaseCompleted {
		t.Fatalf("phase 2 after resume: %+v", resumed.Results[1])
	}
}

func TestResumeCompletedSessionIsNoop(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, sender)

	session, err := o.RunPipeline(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	callsBefore := len(sender.calls)

	resumed, err := o.ResumeSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if resumed.State != types.StateCompleted {
		t.Fatalf("state = %s", resumed.State)
	}
	if len(sender.calls) != callsBefore {
		t.Fatal("completed session must not re-run providers")
	}
}

func TestResumeUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSender{})
	if _, err := o.ResumeSession(context.Background(), "no-such-session"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestRunPipelineValidatesConfig(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSender{})

	cfg := testConfig()
	cfg.Topic = "short"
	if _, err := o.RunPipeline(context.Background(), cfg); err == nil {
		t.Fatal("short topic must be rejected")
	}

	cfg = testConfig()
	cfg.Topic = "          " // whitespace only
	if _, err := o.RunPipeline(context.Background(), cfg); err == nil {
		t.Fatal("whitespace topic must be rejected")
	}

	cfg = testConfig()
	cfg.DocType = ""
	if _, err := o.RunPipeline(context.Background(), cfg); err == nil {
		t.Fatal("missing doc type must be rejected")
	}
}

func TestRunPipelineCancelled(t *testing.T) {
	sender := &fakeSender{}
	o := newTestOrchestrator(t, sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, err := o.RunPipeline(ctx, testConfig())
	if err == nil {
		t.Fatal("cancelled run must return the context error")
	}
	if session.State != types.StateFailed {
		t.Fatalf("state = %s, want failed", session.State)
	}
}
