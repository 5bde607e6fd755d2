// Package types defines the shared data model for the document-generation
// pipeline: sessions, phase results, and normalized agent responses.
package types

import (
	"fmt"
	"time"
)

// Provider tags. These are the canonical names used by the router mapping,
// the fallback chain, pricing tables, and cache keys.
const (
	ProviderClaude     = "claude"
	ProviderGemini     = "gemini"
	ProviderChatGPT    = "chatgpt"
	ProviderPerplexity = "perplexity"
)

// PipelineState represents the orchestrator's top-level state.
type PipelineState string

const (
	StateIdle      PipelineState = "idle"
	StatePhase1    PipelineState = "phase_1"
	StatePhase2    PipelineState = "phase_2"
	StatePhase3    PipelineState = "phase_3"
	StatePhase4    PipelineState = "phase_4"
	StatePhase5    PipelineState = "phase_5"
	StateCompleted PipelineState = "completed"
	StateFailed    PipelineState = "failed"
)

// PhaseState returns the running state tag for phase n (1..5).
func PhaseState(n int) PipelineState {
	return PipelineState(fmt.Sprintf("phase_%d", n))
}

// PhaseStatus represents the status of a single phase result.
// Transitions are pending -> in_progress -> (completed | failed | skipped),
// terminal.
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseFailed     PhaseStatus = "failed"
	PhaseSkipped    PhaseStatus = "skipped"
)

// Terminal reports whether the status is a terminal one.
func (s PhaseStatus) Terminal() bool {
	return s == PhaseCompleted || s == PhaseFailed || s == PhaseSkipped
}

// PhaseCount is the fixed number of pipeline phases.
const PhaseCount = 5

// PhaseNames maps phase number (1-based) to its human name.
var PhaseNames = map[int]string{
	1: "Framing",
	2: "Research",
	3: "Strategy",
	4: "Writing",
	5: "Review",
}

// SessionConfig is the configuration snapshot captured when a session is
// created. Topic must be at least 10 characters after trimming.
type SessionConfig struct {
	Topic          string `json:"topic"`
	DocType        string `json:"doc_type"`
	Language       string `json:"language"`
	Template       string `json:"template"`
	OutputDir      string `json:"output_dir"`
	FromPhase      int    `json:"from_phase,omitempty"`
	MaxRetries     int    `json:"max_retries"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Session owns one end-to-end pipeline run. Mutated only by the
// orchestrator between phases; persisted to disk after every phase for
// resume.
type Session struct {
	ID           string            `json:"id"`
	Config       SessionConfig     `json:"config"`
	Results      []*PhaseResult    `json:"results"`
	CurrentPhase int               `json:"current_phase"`
	State        PipelineState     `json:"state"`
	Artifacts    map[string]any    `json:"artifacts,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PhaseResult records the outcome of a single phase.
type PhaseResult struct {
	Phase       int              `json:"phase"`
	Name        string           `json:"name"`
	Status      PhaseStatus      `json:"status"`
	Responses   []*AgentResponse `json:"ai_responses"`
	Summary     string           `json:"summary,omitempty"`
	Artifacts   map[string]any   `json:"artifacts,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

// AgentResponse is a normalized provider response for one task.
// Invariant: Success==false iff Error!="" and Content=="".
type AgentResponse struct {
	Provider     string    `json:"provider"`
	Task         string    `json:"task"`
	Content      string    `json:"content"`
	TokensUsed   int       `json:"tokens_used"`
	ResponseTime float64   `json:"response_time"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FailureResponse builds a normalized failure response for a task.
func FailureResponse(provider, task string, err error) *AgentResponse {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &AgentResponse{
		Provider:  provider,
		Task:      task,
		Success:   false,
		Error:     msg,
		Timestamp: time.Now(),
	}
}
