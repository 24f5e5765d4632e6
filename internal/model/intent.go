// Package model holds the durable data types the settlement worker moves
// through its pipeline: intents, their lifecycle status, and dead-letter
// entries.
package model

import "time"

// Status is the lifecycle state of an Intent.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSettled    Status = "SETTLED"
	StatusFailed     Status = "FAILED"
)

// Intent is a durable row describing a desired on-chain settlement.
type Intent struct {
	ID         string
	Status     Status
	Hash       string // set once broadcast succeeds
	To         string
	Value      string // decimal string, arbitrary precision
	Calldata   string // hex-prefixed byte string
	GasLimit   string // decimal string, arbitrary precision
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DLQReason is the canonical label recorded on a dead-letter row.
type DLQReason string

const (
	ReasonPermanentError DLQReason = "Permanent Error"
	ReasonMaxRetries     DLQReason = "Max retries exceeded"
)

// DLQEntry is an append-only record of a terminal, unrecoverable intent.
type DLQEntry struct {
	ID           string
	IntentID     string
	Reason       DLQReason
	ErrorDetails string
	EnqueuedAt   time.Time
}
