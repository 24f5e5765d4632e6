// Package store defines the durable-state capability the settlement worker
// drives intents through, and a SQLite-backed implementation built on
// sql.Open("sqlite", ...) with a schema-create-on-open pattern.
package store

import (
	"context"

	"github.com/nemeth06/settlement-worker/internal/chainerr"
	"github.com/nemeth06/settlement-worker/internal/model"
)

// Store is the durable-state capability the worker drives intents through.
// Every method surfaces a *chainerr.StoreError on failure.
type Store interface {
	// GetPending returns PENDING intents ordered by createdAt ascending.
	GetPending(ctx context.Context) ([]model.Intent, error)
	GetByStatus(ctx context.Context, status model.Status) ([]model.Intent, error)
	Get(ctx context.Context, id string) (model.Intent, error)
	GetByHash(ctx context.Context, hash string) (model.Intent, error)

	// SetStatus atomically sets status (and hash, when non-empty) and
	// updatedAt.
	SetStatus(ctx context.Context, id string, status model.Status, hash string) error
	IncrementRetry(ctx context.Context, id string) error
	RecordError(ctx context.Context, id string, text string) error

	// DLQ atomically inserts a DLQ row and sets the intent to FAILED.
	DLQ(ctx context.Context, intentID string, reason model.DLQReason, details string) error

	// ListDLQ returns every dead-letter entry, most recently enqueued first.
	ListDLQ(ctx context.Context) ([]model.DLQEntry, error)

	// SweepStaleProcessing moves every PROCESSING intent back to PENDING.
	// Run once at startup so intents orphaned by a crash mid-broadcast
	// get picked back up by the producer instead of sitting stuck.
	SweepStaleProcessing(ctx context.Context) (int, error)
}

func storeErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &chainerr.StoreError{Operation: operation, Message: err.Error()}
}
