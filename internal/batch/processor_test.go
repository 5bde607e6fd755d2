package batch

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"aigenflow/internal/gateway"
	"aigenflow/internal/router"
	"aigenflow/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoSender answers with the task name, failing for providers in down.
type echoSender struct {
	down map[string]bool
}

func (s *echoSender) Send(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	if s.down[provider] {
		return &gateway.Response{Success: false, Error: "provider down"}, nil
	}
	return &gateway.Response{Content: "echo:" + req.TaskName, Success: true}, nil
}

func newTestProcessor(down map[string]bool) *Processor {
	r := router.New(&echoSender{down: down}, nil, 0)
	return NewProcessor(NewQueue(5), r)
}

func enqueuePhase2(t *testing.T, p *Processor) {
	t.Helper()
	items := []struct {
		provider string
		task     string
	}{
		{types.ProviderGemini, router.TaskDeepSearchGemini},
		{types.ProviderPerplexity, router.TaskFactCheckPerplexity},
	}
	for _, it := range items {
		id := p.Queue().Enqueue(it.provider, Item{
			Phase:   2,
			Task:    it.task,
			Prompt:  "research prompt",
			DocType: router.DocTypeBizplan,
		})
		if id == "" {
			t.Fatalf("enqueue %s rejected", it.task)
		}
	}
}

func TestProcessBatch(t *testing.T) {
	p := newTestProcessor(nil)
	enqueuePhase2(t, p)

	responses := p.ProcessBatch(context.Background())
	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}
	if responses[0].Task != router.TaskDeepSearchGemini || responses[1].Task != router.TaskFactCheckPerplexity {
		t.Fatalf("order lost: %s, %s", responses[0].Task, responses[1].Task)
	}
	for _, resp := range responses {
		if !resp.Success || !strings.HasPrefix(resp.Content, "echo:") {
			t.Fatalf("bad response: %+v", resp)
		}
	}
	if p.Queue().Size() != 0 {
		t.Fatalf("queue not drained: %d", p.Queue().Size())
	}

	stats := p.Stats()
	if stats.TotalBatches != 2 || stats.TotalProcessed != 2 || stats.TotalFailures != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestProcessBatchFailureIsolation(t *testing.T) {
	p := newTestProcessor(map[string]bool{types.ProviderPerplexity: true})
	enqueuePhase2(t, p)

	responses := p.ProcessBatch(context.Background())
	if len(responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(responses))
	}
	if !responses[0].Success {
		t.Fatal("healthy provider's task must succeed")
	}
	if responses[1].Success {
		t.Fatal("down provider's task must fail")
	}
	if stats := p.Stats(); stats.TotalFailures != 1 {
		t.Fatalf("failures = %d, want 1", stats.TotalFailures)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	p := newTestProcessor(nil)
	if got := p.ProcessBatch(context.Background()); got != nil {
		t.Fatalf("empty queue returned %d responses", len(got))
	}
	if stats := p.Stats(); stats.TotalBatches != 0 {
		t.Fatalf("empty process counted a batch: %+v", stats)
	}
}

func TestFlush(t *testing.T) {
	p := newTestProcessor(nil)
	if p.Flush(context.Background()) != nil {
		t.Fatal("flush of empty queue must no-op")
	}
	enqueuePhase2(t, p)
	if got := len(p.Flush(context.Background())); got != 2 {
		t.Fatalf("flush returned %d responses, want 2", got)
	}
}

func TestQueueOrderPreservedPerGroup(t *testing.T) {
	r := router.New(&echoSender{}, nil, 0)
	p := NewProcessor(NewQueue(5), r)

	// Two tasks on the same provider keep their enqueue order.
	p.Queue().Enqueue(types.ProviderClaude, Item{Phase: 5, Task: router.TaskFinalReviewClaude, Prompt: "p", DocType: router.DocTypeBizplan})
	p.Queue().Enqueue(types.ProviderClaude, Item{Phase: 5, Task: router.TaskPolishClaude, Prompt: "p", DocType: router.DocTypeBizplan})

	responses := p.ProcessBatch(context.Background())
	if len(responses) != 2 {
		t.Fatalf("responses = %d", len(responses))
	}
	if responses[0].Task != router.TaskFinalReviewClaude || responses[1].Task != router.TaskPolishClaude {
		t.Fatalf("order lost: %s, %s", responses[0].Task, responses[1].Task)
	}
}
