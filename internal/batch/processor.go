package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"aigenflow/internal/logging"
	"aigenflow/internal/router"
	"aigenflow/internal/types"
)

// Stats are monotone processor counters.
type Stats struct {
	TotalBatches   int `json:"total_batches"`
	TotalProcessed int `json:"total_processed"`
	TotalFailures  int `json:"total_failures"`
}

// Processor executes queued requests through the router with bounded
// concurrency, restoring enqueue order on collection. Batch-level problems
// degrade to per-item failure responses; the rest of the batch proceeds.
type Processor struct {
	queue  *Queue
	router *router.Router

	mu    sync.Mutex
	stats Stats
}

// NewProcessor binds a processor to its queue and router.
func NewProcessor(queue *Queue, r *router.Router) *Processor {
	return &Processor{queue: queue, router: r}
}

// Queue returns the bound queue.
func (p *Processor) Queue() *Queue {
	return p.queue
}

// ProcessBatch snapshots the queue, executes every group, removes the
// snapshotted entries, and returns the responses. Concurrency is bounded
// by the queue's batch size; each group's responses keep enqueue order.
func (p *Processor) ProcessBatch(ctx context.Context) []*types.AgentResponse {
	groups := p.queue.GetBatches()
	if len(groups) == 0 {
		return nil
	}

	var processed []string
	var responses []*types.AgentResponse
	for _, group := range groups {
		logging.Batch("processing group %s (%d items)", group.Provider, len(group.Requests))
		responses = append(responses, p.processGroup(ctx, group)...)
		for _, req := range group.Requests {
			processed = append(processed, req.ID)
		}
		p.mu.Lock()
		p.stats.TotalBatches++
		p.mu.Unlock()
	}

	p.queue.RemoveProcessed(processed)
	return responses
}

// processGroup fans the group out with bounded concurrency and restores
// order on collection. A per-item error becomes a failure response for
// that item only.
func (p *Processor) processGroup(ctx context.Context, group Group) []*types.AgentResponse {
	out := make([]*types.AgentResponse, len(group.Requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.queue.maxSize)
	for i, req := range group.Requests {
		i, req := i, req
		g.Go(func() error {
			item := req.Item
			resp, err := p.router.Execute(gctx, item.Phase, item.Task, item.Prompt, item.DocType)
			if err != nil {
				resp = types.FailureResponse(group.Provider, item.Task, err)
			}
			out[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	for _, resp := range out {
		p.stats.TotalProcessed++
		if resp == nil || !resp.Success {
			p.stats.TotalFailures++
		}
	}
	p.mu.Unlock()
	return out
}

// Flush processes the queue if non-empty, otherwise no-ops.
func (p *Processor) Flush(ctx context.Context) []*types.AgentResponse {
	if p.queue.Size() == 0 {
		return nil
	}
	return p.ProcessBatch(ctx)
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
