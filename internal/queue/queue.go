// Package queue implements the bounded FIFO handoff between the Producer
// and the Worker pool. Capacity is the sole backpressure mechanism: a slow
// chain throttles polling because Offer blocks once the buffer fills,
// rather than failing fast.
package queue

import (
	"context"

	"github.com/nemeth06/settlement-worker/internal/model"
)

// Capacity is the fixed bound on in-flight queued items.
const Capacity = 100

// Item is a unit of work handed from the Producer to a Worker.
type Item struct {
	Intent model.Intent
}

// Queue is a bounded FIFO of Items.
type Queue struct {
	items chan Item
}

// New returns a queue at the fixed capacity.
func New() *Queue {
	return &Queue{items: make(chan Item, Capacity)}
}

// Offer blocks until there is room for item or ctx is cancelled.
func (q *Queue) Offer(ctx context.Context, item Item) error {
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take blocks until an item is available or ctx is cancelled.
func (q *Queue) Take(ctx context.Context) (Item, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// Len reports the current queue depth. Used by tests and monitoring.
func (q *Queue) Len() int {
	return len(q.items)
}
