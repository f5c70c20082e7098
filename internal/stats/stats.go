// Package stats counts submission outcomes.
//
// Recording is best-effort: callers log a failed Record and carry on.
package stats

import (
	"context"
	"sync"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeInvalid   Outcome = "invalid"
)

type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
	Counts(ctx context.Context) (map[Outcome]int64, error)
}

// MemoryRecorder keeps counters for the lifetime of the process.
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[Outcome]int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[Outcome]int64)}
}

func (r *MemoryRecorder) Record(_ context.Context, outcome Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[outcome]++
	return nil
}

func (r *MemoryRecorder) Counts(_ context.Context) (map[Outcome]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Outcome]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out, nil
}
