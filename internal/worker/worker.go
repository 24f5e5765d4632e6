// Package worker implements the per-item retry loop: take an item from the
// Queue, run the Processor under the Submission Lock, retry transient
// failures with exponential backoff, and release the In-flight Registry
// slot on exit.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/nemeth06/settlement-worker/internal/processor"
	"github.com/nemeth06/settlement-worker/internal/queue"
	"github.com/nemeth06/settlement-worker/internal/registry"
)

const (
	maxInWorkerAttempts = 3
	backoffBase         = 100 * time.Millisecond
	backoffFactor       = 2
)

// Worker drains the shared queue and drives each item through the
// Processor.
type Worker struct {
	id        int
	queue     *queue.Queue
	registry  *registry.InFlight
	lock      *SubmissionLock
	processor *processor.Processor
	log       *log.Logger
}

// New constructs a Worker. lock is shared across every worker in the
// pool.
func New(id int, q *queue.Queue, reg *registry.InFlight, lock *SubmissionLock, proc *processor.Processor, logger *log.Logger) *Worker {
	return &Worker{id: id, queue: q, registry: reg, lock: lock, processor: proc, log: logger}
}

// Run loops, taking items until ctx is cancelled. Any panic inside the
// per-item body is caught and logged, isolating it from sibling workers
// and the supervisor.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Take(ctx)
		if err != nil {
			w.log.Printf("shutting down: %v", err)
			return
		}
		w.handle(ctx, item)
	}
}

func (w *Worker) handle(ctx context.Context, item queue.Item) {
	intentID := item.Intent.ID
	defer w.registry.Release(intentID)
	defer func() {
		if r := recover(); r != nil {
			w.log.Printf("recovered panic processing intent %s: %v", intentID, r)
		}
	}()

	backoff := backoffBase
	for attempt := 1; attempt <= maxInWorkerAttempts; attempt++ {
		final := attempt == maxInWorkerAttempts
		err := w.attempt(ctx, item, final)
		if err == nil {
			return
		}

		procErr, ok := err.(*processor.ProcessError)
		if !ok || procErr.Terminal || final {
			return
		}

		w.log.Printf("intent %s transient failure on attempt %d, backing off %s", intentID, attempt, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= backoffFactor
	}
}

// attempt runs a single Processor invocation under the submission lock;
// the lock is released before returning so another worker may interleave
// while this one backs off. final marks this as the last in-process
// attempt, so a still-retryable outcome gets its retry persisted instead
// of being deferred to a later tick.
func (w *Worker) attempt(ctx context.Context, item queue.Item, final bool) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.processor.Process(ctx, item.Intent, final)
}
