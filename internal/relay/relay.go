package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vaidashi/courier-ledger/internal/models"
	"github.com/vaidashi/courier-ledger/pkg/circuitbreaker"
	"github.com/vaidashi/courier-ledger/pkg/logger"
	"github.com/vaidashi/courier-ledger/pkg/retry"
)

// Publisher delivers one event to the outside world.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Config holds the relay tuning knobs.
type Config struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxAttempts     int
}

// Relay drains the journal on a polling loop and publishes events with
// retry behind a circuit breaker. It is the eventually-applied side-effect
// layer: publication is at-least-once and its failures never reach core
// callers.
type Relay struct {
	journal   *Journal
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	backoff   retry.BackoffStrategy

	pollingInterval time.Duration
	batchSize       int
	maxAttempts     int
	logger          logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	// Events that exhausted their retries; kept for operator inspection.
	deadMu sync.Mutex
	dead   []models.Event
}

// New creates a relay over the given journal and publisher.
func New(journal *Journal, publisher Publisher, cfg Config, log logger.Logger) *Relay {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = 5 * time.Second
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Relay{
		journal:   journal,
		publisher: publisher,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 1,
		}),
		backoff:         retry.NewDefaultExponentialBackoff(),
		pollingInterval: cfg.PollingInterval,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		logger:          log,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start launches the polling loop.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	r.running = true
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		r.run()
	}()

	r.logger.Info("Event relay started",
		"polling_interval", r.pollingInterval, "batch_size", r.batchSize)
}

// Stop stops the polling loop and waits for the in-flight batch.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	r.cancel()
	r.wg.Wait()
	r.running = false

	r.logger.Info("Event relay stopped", "pending", r.journal.Len())
}

func (r *Relay) run() {
	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.processBatch()
		}
	}
}

func (r *Relay) processBatch() {
	events := r.journal.Drain(r.batchSize)

	if len(events) == 0 {
		return
	}

	if !r.breaker.Allow() {
		r.logger.Warn("Publisher circuit open, requeueing batch", "count", len(events))
		r.journal.Requeue(events)
		return
	}

	for i, event := range events {
		if err := r.publishWithRetry(event); err != nil {
			r.breaker.Failure()

			// Requeue the rest of the batch so ordering survives the failure;
			// the failed event itself is dead-lettered.
			r.deadMu.Lock()
			r.dead = append(r.dead, event)
			r.deadMu.Unlock()

			r.journal.Requeue(events[i+1:])

			r.logger.Error("Event publication failed permanently",
				"error", err, "event_id", event.ID, "event_type", event.Type)
			return
		}

		r.breaker.Success()
	}
}

func (r *Relay) publishWithRetry(event models.Event) error {
	attempt := 0

	return retry.Retry(r.ctx, func() error {
		attempt++

		ctx, cancel := context.WithTimeout(r.ctx, r.pollingInterval)
		defer cancel()

		if err := r.publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish attempt %d: %w", attempt, err)
		}

		return nil
	}, &retry.Config{
		MaxAttempts:     r.maxAttempts,
		BackoffStrategy: r.backoff,
		Logger:          r.logger,
	})
}

// DeadEvents returns copies of the events that exhausted their retries.
func (r *Relay) DeadEvents() []models.Event {
	r.deadMu.Lock()
	defer r.deadMu.Unlock()

	out := make([]models.Event, len(r.dead))
	copy(out, r.dead)

	return out
}
