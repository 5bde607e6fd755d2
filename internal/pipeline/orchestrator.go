// Package pipeline owns the five-phase document-generation run: phase
// execution, context carry-over, and session persistence for resume.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"aigenflow/internal/logging"
	"aigenflow/internal/router"
	"aigenflow/internal/summarizer"
	"aigenflow/internal/tokens"
	"aigenflow/internal/types"
)

// Orchestrator drives a session through its phases. State and per-phase
// results are persisted synchronously after every phase; a persistence
// failure aborts the run.
type Orchestrator struct {
	executor   *Executor
	router     *router.Router
	summarizer *summarizer.Summarizer
	outputDir  string
}

// NewOrchestrator wires the orchestrator. summ may be nil to disable
// context summarization.
func NewOrchestrator(exec *Executor, r *router.Router, summ *summarizer.Summarizer, outputDir string) *Orchestrator {
	return &Orchestrator{executor: exec, router: r, summarizer: summ, outputDir: outputDir}
}

// SessionDir returns the on-disk directory of a session.
func (o *Orchestrator) SessionDir(sessionID string) string {
	return filepath.Join(o.outputDir, sessionID)
}

// RunPipeline creates a fresh session for cfg and runs it from the first
// phase (or cfg.FromPhase when set). The session is returned in its final
// state; a FAILED session is not an error.
func (o *Orchestrator) RunPipeline(ctx context.Context, cfg types.SessionConfig) (*types.Session, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	now := time.Now()
	session := &types.Session{
		ID:        uuid.NewString(),
		Config:    cfg,
		State:     types.StateIdle,
		Artifacts: make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
	dir := o.SessionDir(session.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	logging.Pipeline("session %s started: topic=%q doc_type=%s", session.ID, cfg.Topic, cfg.DocType)

	start := 1
	if cfg.FromPhase > 1 {
		start = cfg.FromPhase
	}
	if err := o.run(ctx, session, dir, start); err != nil {
		return session, err
	}
	return session, nil
}

// ResumeSession reloads a persisted session and continues from the phase
// after its cursor. A completed session returns unchanged.
func (o *Orchestrator) ResumeSession(ctx context.Context, sessionID string) (*types.Session, error) {
	dir := o.SessionDir(sessionID)
	session, err := LoadSession(dir)
	if err != nil {
		return nil, err
	}
	if session.State == types.StateCompleted {
		logging.Pipeline("session %s already completed", sessionID)
		return session, nil
	}

	start := session.CurrentPhase + 1
	if session.Config.FromPhase > start {
		start = session.Config.FromPhase
	}
	if start > types.PhaseCount {
		return session, fmt.Errorf("session %s has no phases left to run", sessionID)
	}
	logging.Pipeline("session %s resuming at phase %d", sessionID, start)

	// Drop stale results from the phase being re-run onwards.
	kept := session.Results[:0]
	for _, pr := range session.Results {
		if pr.Phase < start {
			kept = append(kept, pr)
		}
	}
	session.Results = kept

	if err := o.run(ctx, session, dir, start); err != nil {
		return session, err
	}
	return session, nil
}

func (o *Orchestrator) run(ctx context.Context, session *types.Session, dir string, start int) error {
	for k := start; k <= types.PhaseCount; k++ {
		if ctx.Err() != nil {
			session.State = types.StateFailed
			session.UpdatedAt = time.Now()
			if err := SaveSession(dir, session); err != nil {
				return err
			}
			return ctx.Err()
		}

		carry := o.carryContext(ctx, session, k)

		session.State = types.PhaseState(k)
		session.UpdatedAt = time.Now()
		if err := SaveSession(dir, session); err != nil {
			return err
		}

		pr := o.executor.ExecutePhase(ctx, session, k, carry)
		session.Results = append(session.Results, pr)
		session.UpdatedAt = time.Now()

		if err := SavePhaseResult(dir, pr); err != nil {
			return err
		}
		if pr.Status == types.PhaseFailed {
			// Cursor stays on the last completed phase so resume re-runs
			// the failed one. A failed session therefore carries one more
			// result than its cursor; ResumeSession drops that stale
			// result before re-running.
			session.State = types.StateFailed
			if err := SaveSession(dir, session); err != nil {
				return err
			}
			logging.Pipeline("session %s failed at phase %d: %s", session.ID, k, pr.Summary)
			return nil
		}
		session.CurrentPhase = k
		if err := SaveSession(dir, session); err != nil {
			return err
		}
		logging.Pipeline("session %s phase %d %s", session.ID, k, pr.Status)
	}

	session.State = types.StateCompleted
	session.UpdatedAt = time.Now()
	if err := SaveSession(dir, session); err != nil {
		return err
	}
	logging.Pipeline("session %s completed", session.ID)
	return nil
}

// carryContext builds the prior-phase context for phase k, summarizing
// it when it presses against the tightest context window among the
// phase's providers. Summarization never fails the run.
func (o *Orchestrator) carryContext(ctx context.Context, session *types.Session, k int) string {
	carry := summarizer.BuildContext(session.Results)
	if k <= 1 || carry == "" || o.summarizer == nil {
		return carry
	}
	provider := o.tightestProvider(k, session.Config.DocType)
	if !o.summarizer.ShouldSummarize(carry, provider) {
		return carry
	}
	res := o.summarizer.Summarize(ctx, carry)
	session.Artifacts[fmt.Sprintf("context_summary_phase_%d", k)] = res
	if res.Success {
		return res.SummaryText
	}
	return carry
}

// tightestProvider returns the phase's provider with the smallest
// context window.
func (o *Orchestrator) tightestProvider(k int, docType string) string {
	best := ""
	bestLimit := 0
	for _, task := range router.PhaseTasks()[k] {
		provider, err := o.router.Resolve(k, task, docType)
		if err != nil {
			continue
		}
		limit := tokens.WindowLimit(provider)
		if best == "" || limit < bestLimit {
			best, bestLimit = provider, limit
		}
	}
	if best == "" {
		return types.ProviderClaude
	}
	return best
}

func validateConfig(cfg types.SessionConfig) error {
	if len(strings.TrimSpace(cfg.Topic)) < 10 {
		return fmt.Errorf("topic too short: need at least 10 characters")
	}
	if cfg.DocType == "" {
		return fmt.Errorf("doc_type is required")
	}
	if cfg.FromPhase < 0 || cfg.FromPhase > types.PhaseCount {
		return fmt.Errorf("from_phase out of range: %d", cfg.FromPhase)
	}
	return nil
}
