// Package producer implements the periodic poll loop: fetch PENDING
// intents, dedup against the In-flight Registry, and offer new ones to
// the Queue. The loop never dies — every sub-step failure is logged and
// the loop resumes on the next tick.
package producer

import (
	"context"
	"log"
	"time"

	"github.com/nemeth06/settlement-worker/internal/model"
	"github.com/nemeth06/settlement-worker/internal/queue"
	"github.com/nemeth06/settlement-worker/internal/registry"
	"github.com/nemeth06/settlement-worker/internal/store"
)

// PendingSource is the subset of the Store capability the producer needs.
type PendingSource interface {
	GetPending(ctx context.Context) ([]model.Intent, error)
}

var _ PendingSource = store.Store(nil)

// Producer polls the store and feeds new work into the queue.
type Producer struct {
	pollInterval time.Duration
	store        PendingSource
	queue        *queue.Queue
	registry     *registry.InFlight
	log          *log.Logger
}

// New constructs a Producer.
func New(pollInterval time.Duration, st PendingSource, q *queue.Queue, reg *registry.InFlight, logger *log.Logger) *Producer {
	return &Producer{pollInterval: pollInterval, store: st, queue: q, registry: reg, log: logger}
}

// Run polls until ctx is cancelled.
func (p *Producer) Run(ctx context.Context) {
	for {
		p.tick(ctx)

		select {
		case <-time.After(p.pollInterval):
		case <-ctx.Done():
			p.log.Printf("shutting down")
			return
		}
	}
}

// tick runs one poll cycle. Defects (panics) are caught and logged; the
// loop resumes on the next tick regardless of what happened here.
func (p *Producer) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Printf("recovered panic during poll: %v", r)
		}
	}()

	pending, err := p.store.GetPending(ctx)
	if err != nil {
		p.log.Printf("poll failed: %v", err)
		return
	}
	if len(pending) == 0 {
		p.log.Printf("idle: no pending intents")
		return
	}

	ids := make([]string, len(pending))
	byID := make(map[string]model.Intent, len(pending))
	for i, intent := range pending {
		ids[i] = intent.ID
		byID[intent.ID] = intent
	}

	newIDs := p.registry.Claim(ids)
	for _, id := range newIDs {
		intent := byID[id]
		if err := p.queue.Offer(ctx, queue.Item{Intent: intent}); err != nil {
			p.log.Printf("offer cancelled for intent %s: %v", id, err)
			p.registry.Release(id)
			return
		}
	}
}
