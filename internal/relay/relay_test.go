package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/courier-ledger/internal/models"
	"github.com/vaidashi/courier-ledger/pkg/logger"
)

func newEvent(id string) models.Event {
	return models.Event{
		ID:            id,
		Type:          models.EventOrderCreated,
		AggregateType: "order",
		AggregateID:   "ORD-1",
		OccurredAt:    models.GetCurrentTime(),
	}
}

func TestJournalDrainIsOrderedAndBounded(t *testing.T) {
	j := NewJournal()

	for i := 0; i < 5; i++ {
		j.Record(newEvent(fmt.Sprintf("evt-%d", i)))
	}

	batch := j.Drain(3)
	require.Len(t, batch, 3)
	assert.Equal(t, "evt-0", batch[0].ID)
	assert.Equal(t, "evt-2", batch[2].ID)
	assert.Equal(t, 2, j.Len())

	rest := j.Drain(0)
	require.Len(t, rest, 2)
	assert.Equal(t, "evt-3", rest[0].ID)
	assert.Nil(t, j.Drain(10))
}

func TestJournalRequeuePreservesOrder(t *testing.T) {
	j := NewJournal()

	j.Record(newEvent("evt-0"))
	j.Record(newEvent("evt-1"))
	j.Record(newEvent("evt-2"))

	batch := j.Drain(2)
	j.Requeue(batch)

	all := j.Drain(0)
	require.Len(t, all, 3)
	assert.Equal(t, "evt-0", all[0].ID)
	assert.Equal(t, "evt-1", all[1].ID)
	assert.Equal(t, "evt-2", all[2].ID)
}

// fakePublisher records published events and can be told to fail.
type fakePublisher struct {
	mu        sync.Mutex
	published []models.Event
	failures  int
}

func (p *fakePublisher) Publish(_ context.Context, event models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}

	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.published)
}

func TestRelayPublishesPendingEvents(t *testing.T) {
	j := NewJournal()
	pub := &fakePublisher{}

	r := New(j, pub, Config{PollingInterval: 10 * time.Millisecond}, logger.NewNopLogger())
	r.Start()
	defer r.Stop()

	j.Record(newEvent("evt-0"))
	j.Record(newEvent("evt-1"))

	assert.Eventually(t, func() bool {
		return pub.count() == 2 && j.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "evt-0", pub.published[0].ID)
	assert.Equal(t, "evt-1", pub.published[1].ID)
}

func TestRelayRetriesTransientFailures(t *testing.T) {
	j := NewJournal()
	pub := &fakePublisher{failures: 2}

	r := New(j, pub, Config{
		PollingInterval: 10 * time.Millisecond,
		MaxAttempts:     5,
	}, logger.NewNopLogger())
	r.backoff = &instantBackoff{}
	r.Start()
	defer r.Stop()

	j.Record(newEvent("evt-0"))

	assert.Eventually(t, func() bool {
		return pub.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, r.DeadEvents())
}

func TestRelayDeadLettersExhaustedEvents(t *testing.T) {
	j := NewJournal()
	pub := &fakePublisher{failures: 100}

	r := New(j, pub, Config{
		PollingInterval: 10 * time.Millisecond,
		MaxAttempts:     2,
	}, logger.NewNopLogger())
	r.backoff = &instantBackoff{}
	r.Start()
	defer r.Stop()

	j.Record(newEvent("evt-0"))

	assert.Eventually(t, func() bool {
		return len(r.DeadEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "evt-0", r.DeadEvents()[0].ID)
}

func TestRelayStartStopIsIdempotent(t *testing.T) {
	r := New(NewJournal(), &fakePublisher{}, Config{PollingInterval: 10 * time.Millisecond}, logger.NewNopLogger())

	r.Start()
	r.Start()
	r.Stop()
	r.Stop()
}

type instantBackoff struct{}

func (b *instantBackoff) NextBackoff(int) time.Duration { return 0 }
