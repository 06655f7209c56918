package notifier

import (
	"context"
	"sync"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

// Recorder is an append-only in-process log of placed orders.
type Recorder struct {
	mu     sync.Mutex
	events []domain.OrderPlaced
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OrderPlaced(_ context.Context, event domain.OrderPlaced) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []domain.OrderPlaced {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OrderPlaced, len(r.events))
	copy(out, r.events)
	return out
}
