package pipeline

import (
	"context"
	"fmt"
	"time"

	"aigenflow/internal/batch"
	"aigenflow/internal/logging"
	"aigenflow/internal/prompt"
	"aigenflow/internal/router"
	"aigenflow/internal/types"
)

// Executor runs the tasks of a single phase. Task failures are recorded
// in the phase result and do not stop the remaining tasks; cancellation
// does.
type Executor struct {
	router    *router.Router
	renderer  *prompt.Renderer
	processor *batch.Processor
}

// NewExecutor creates an executor over the router and renderer.
func NewExecutor(r *router.Router, renderer *prompt.Renderer) *Executor {
	return &Executor{router: r, renderer: renderer}
}

// WithBatch enables batched execution for phases whose tasks hit
// distinct providers.
func (e *Executor) WithBatch(p *batch.Processor) *Executor {
	e.processor = p
	return e
}

// ExecutePhase executes all tasks of phase n for the session, carrying
// prior-phase context. An unknown phase produces a skipped result.
func (e *Executor) ExecutePhase(ctx context.Context, session *types.Session, n int, carry string) *types.PhaseResult {
	pr := &types.PhaseResult{
		Phase:     n,
		Name:      types.PhaseNames[n],
		Status:    types.PhaseInProgress,
		StartedAt: time.Now(),
	}

	tasks := router.PhaseTasks()[n]
	if len(tasks) == 0 {
		pr.Status = types.PhaseSkipped
		pr.CompletedAt = time.Now()
		logging.Phase("phase %d has no tasks, skipping", n)
		return pr
	}
	logging.Phase("phase %d (%s): %d tasks", n, pr.Name, len(tasks))

	if e.processor != nil && n == 2 {
		pr.Responses = e.runBatched(ctx, session, n, tasks, carry)
	} else {
		pr.Responses = e.runSequential(ctx, session, n, tasks, carry)
	}

	pr.Status = types.PhaseCompleted
	failures := 0
	for _, resp := range pr.Responses {
		if resp == nil || !resp.Success {
			failures++
		}
	}
	if failures > 0 {
		pr.Status = types.PhaseFailed
		pr.Summary = fmt.Sprintf("%d of %d tasks failed", failures, len(tasks))
	} else {
		pr.Summary = fmt.Sprintf("%d tasks completed", len(tasks))
	}
	pr.CompletedAt = time.Now()
	return pr
}

func (e *Executor) runSequential(ctx context.Context, session *types.Session, n int, tasks []string, carry string) []*types.AgentResponse {
	responses := make([]*types.AgentResponse, 0, len(tasks))
	for _, task := range tasks {
		if ctx.Err() != nil {
			responses = append(responses, types.FailureResponse("", task, ctx.Err()))
			continue
		}
		text, err := e.renderPrompt(session, n, task, carry)
		if err != nil {
			responses = append(responses, types.FailureResponse("", task, err))
			continue
		}
		resp, err := e.router.Execute(ctx, n, task, text, session.Config.DocType)
		if err != nil {
			resp = types.FailureResponse("", task, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// runBatched enqueues the phase's tasks and lets the processor fan them
// out across providers. Tasks that cannot be rendered or enqueued fall
// back to sequential execution for that task.
func (e *Executor) runBatched(ctx context.Context, session *types.Session, n int, tasks []string, carry string) []*types.AgentResponse {
	queue := e.processor.Queue()
	var leftovers []string

	for _, task := range tasks {
		text, err := e.renderPrompt(session, n, task, carry)
		if err != nil {
			leftovers = append(leftovers, task)
			continue
		}
		provider, err := e.router.Resolve(n, task, session.Config.DocType)
		if err != nil {
			leftovers = append(leftovers, task)
			continue
		}
		id := queue.Enqueue(provider, batch.Item{
			Phase:   n,
			Task:    task,
			Prompt:  text,
			DocType: session.Config.DocType,
		})
		if id == "" {
			leftovers = append(leftovers, task)
		}
	}

	batched := e.processor.ProcessBatch(ctx)
	extra := e.runSequential(ctx, session, n, leftovers, carry)

	// Restore the phase's task order across both execution paths.
	index := make(map[string]*types.AgentResponse, len(batched)+len(extra))
	for _, resp := range append(batched, extra...) {
		if resp != nil {
			index[resp.Task] = resp
		}
	}
	responses := make([]*types.AgentResponse, 0, len(tasks))
	for _, task := range tasks {
		if resp, ok := index[task]; ok {
			responses = append(responses, resp)
		} else {
			responses = append(responses, types.FailureResponse("", task, fmt.Errorf("no response for task %s", task)))
		}
	}
	return responses
}

func (e *Executor) renderPrompt(session *types.Session, n int, task, carry string) (string, error) {
	return e.renderer.Render(fmt.Sprintf("phase_%d/%s", n, task), map[string]string{
		"topic":    session.Config.Topic,
		"doc_type": session.Config.DocType,
		"language": session.Config.Language,
		"context":  carry,
	})
}
