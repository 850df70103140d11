package relay

import (
	"sync"

	"github.com/vaidashi/courier-ledger/internal/models"
)

// Journal is the in-memory queue between the core and the relay. The ledger
// and the engines append events here as part of their mutations; the relay
// drains it on its own goroutine. Append never blocks and never fails, so
// event emission cannot affect a core operation.
type Journal struct {
	mu      sync.Mutex
	pending []models.Event
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{pending: make([]models.Event, 0)}
}

// Record implements models.Recorder.
func (j *Journal) Record(e models.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.pending = append(j.pending, e)
}

// Drain removes and returns up to max pending events, oldest first.
func (j *Journal) Drain(max int) []models.Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.pending) == 0 {
		return nil
	}

	n := len(j.pending)

	if max > 0 && max < n {
		n = max
	}

	out := make([]models.Event, n)
	copy(out, j.pending[:n])
	j.pending = append(j.pending[:0], j.pending[n:]...)

	return out
}

// Requeue puts events back at the head of the queue, preserving their order,
// so a failed batch is retried before newer events.
func (j *Journal) Requeue(events []models.Event) {
	if len(events) == 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.pending = append(append([]models.Event{}, events...), j.pending...)
}

// Len reports the number of pending events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.pending)
}
