package worker

import "sync"

// SubmissionLock is the single binary permit that serializes nonce
// allocation through broadcast across all workers sharing one signing
// identity. A plain mutex is sufficient: the coarseness is the point,
// not fairness or reentrancy.
type SubmissionLock struct {
	mu sync.Mutex
}

// NewSubmissionLock returns an unlocked submission lock.
func NewSubmissionLock() *SubmissionLock {
	return &SubmissionLock{}
}

func (l *SubmissionLock) Lock()   { l.mu.Lock() }
func (l *SubmissionLock) Unlock() { l.mu.Unlock() }
