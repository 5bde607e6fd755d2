package pipeline

import (
	"context"
	"sync"

	"aigenflow/internal/gateway"
)

// fakeSender answers per task, failing the tasks listed in failTasks.
type fakeSender struct {
	mu        sync.Mutex
	failTasks map[string]bool
	calls     []string
}

func (s *fakeSender) Send(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.TaskName)
	fail := s.failTasks[req.TaskName]
	s.mu.Unlock()

	if fail {
		return &gateway.Response{Success: false, Error: "provider unavailable"}, nil
	}
	return &gateway.Response{Content: "response for " + req.TaskName, Success: true, TokensUsed: 10}, nil
}

func (s *fakeSender) setFailing(tasks ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTasks = make(map[string]bool)
	for _, task := range tasks {
		s.failTasks[task] = true
	}
}
