package fallback

import (
	"context"
	"sync"

	"aigenflow/internal/gateway"
)

// scriptedSender returns per-provider scripted outcomes in order, repeating
// the last one when the script runs out.
type scriptedSender struct {
	mu      sync.Mutex
	scripts map[string][]*gateway.Response
	errs    map[string][]error
	calls   []string
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{
		scripts: make(map[string][]*gateway.Response),
		errs:    make(map[string][]error),
	}
}

func (s *scriptedSender) script(provider string, resp *gateway.Response, err error) {
	s.scripts[provider] = append(s.scripts[provider], resp)
	s.errs[provider] = append(s.errs[provider], err)
}

func (s *scriptedSender) Send(ctx context.Context, provider string, req gateway.Request) (*gateway.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, provider)

	script := s.scripts[provider]
	errs := s.errs[provider]
	if len(script) == 0 {
		return &gateway.Response{Success: false, Error: "unscripted provider"}, nil
	}
	i := 0
	for _, p := range s.calls[:len(s.calls)-1] {
		if p == provider {
			i++
		}
	}
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i], errs[i]
}

func (s *scriptedSender) callCount(provider string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.calls {
		if p == provider {
			n++
		}
	}
	return n
}

func ok(content string) *gateway.Response {
	return &gateway.Response{Content: content, Success: true}
}

func fail(msg string) *gateway.Response {
	return &gateway.Response{Success: false, Error: msg}
}
