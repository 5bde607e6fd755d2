// Package batch groups pending provider requests and executes them with
// bounded concurrency, falling back to per-item failure responses.
package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"aigenflow/internal/logging"
)

// DefaultMaxBatchSize bounds outstanding batch requests.
const DefaultMaxBatchSize = 5

// Item is the routed unit of work carried by a batch request.
type Item struct {
	Phase   int    `json:"phase"`
	Task    string `json:"task"`
	Prompt  string `json:"prompt"`
	DocType string `json:"doc_type"`
}

// Request is one pending entry in the queue.
type Request struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Item       Item      `json:"item"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Group is the per-provider slice of pending requests, in enqueue order.
type Group struct {
	Provider string
	Requests []*Request
}

// Queue holds up to maxSize pending requests. Single owner: the processor
// it is bound to.
type Queue struct {
	mu      sync.Mutex
	items   []*Request
	maxSize int
}

// NewQueue creates a queue; size 0 selects the default.
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}
	return &Queue{maxSize: maxSize}
}

// Enqueue adds a request and returns its id, or "" when the queue is full.
func (q *Queue) Enqueue(provider string, item Item) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		logging.BatchDebug("queue full (%d), rejecting task=%s", q.maxSize, item.Task)
		return ""
	}
	req := &Request{
		ID:         uuid.NewString(),
		Provider:   provider,
		Item:       item,
		EnqueuedAt: time.Now(),
	}
	q.items = append(q.items, req)
	return req.ID
}

// Size returns the number of pending requests.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetBatches groups current contents by provider. Each group preserves
// enqueue order; group order follows first appearance.
func (q *Queue) GetBatches() []Group {
	q.mu.Lock()
	defer q.mu.Unlock()

	index := make(map[string]int)
	var groups []Group
	for _, req := range q.items {
		i, ok := index[req.Provider]
		if !ok {
			i = len(groups)
			index[req.Provider] = i
			groups = append(groups, Group{Provider: req.Provider})
		}
		groups[i].Requests = append(groups[i].Requests, req)
	}
	return groups
}

// RemoveProcessed drops entries whose ids are in ids.
func (q *Queue) RemoveProcessed(ids []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := q.items[:0]
	for _, req := range q.items {
		if _, ok := drop[req.ID]; !ok {
			kept = append(kept, req)
		}
	}
	q.items = kept
}
