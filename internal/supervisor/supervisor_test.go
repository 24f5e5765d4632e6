package supervisor

import (
	"context"
	"log"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/nemeth06/settlement-worker/internal/chain"
	"github.com/nemeth06/settlement-worker/internal/config"
	"github.com/nemeth06/settlement-worker/internal/model"
	"github.com/nemeth06/settlement-worker/internal/signer"
	"github.com/nemeth06/settlement-worker/internal/store"
)

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeStore struct {
	mu          sync.Mutex
	swept       int
	pendingOnce bool
}

func (fs *fakeStore) GetPending(ctx context.Context) ([]model.Intent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.pendingOnce {
		return nil, nil
	}
	fs.pendingOnce = true
	return nil, nil
}
func (fs *fakeStore) GetByStatus(ctx context.Context, status model.Status) ([]model.Intent, error) {
	return nil, nil
}
func (fs *fakeStore) Get(ctx context.Context, id string) (model.Intent, error) {
	return model.Intent{}, nil
}
func (fs *fakeStore) GetByHash(ctx context.Context, hash string) (model.Intent, error) {
	return model.Intent{}, nil
}
func (fs *fakeStore) SetStatus(ctx context.Context, id string, status model.Status, hash string) error {
	return nil
}
func (fs *fakeStore) IncrementRetry(ctx context.Context, id string) error    { return nil }
func (fs *fakeStore) RecordError(ctx context.Context, id, text string) error { return nil }
func (fs *fakeStore) DLQ(ctx context.Context, intentID string, reason model.DLQReason, details string) error {
	return nil
}
func (fs *fakeStore) ListDLQ(ctx context.Context) ([]model.DLQEntry, error) { return nil, nil }
func (fs *fakeStore) SweepStaleProcessing(ctx context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.swept++
	return 0, nil
}

var _ store.Store = (*fakeStore)(nil)

type fakeChain struct{}

func (fakeChain) GetNonce(ctx context.Context, address string) (int64, error) { return 1, nil }
func (fakeChain) GetGasPrice(ctx context.Context) (*big.Int, error)           { return big.NewInt(1), nil }
func (fakeChain) SendRaw(ctx context.Context, signedHex string) (string, error) {
	return "0xhash", nil
}
func (fakeChain) GetTx(ctx context.Context, hash string) (*chain.TxResponse, error) { return nil, nil }
func (fakeChain) WaitFor(ctx context.Context, hash string, confirmations uint64) (*chain.Receipt, error) {
	return nil, nil
}

var _ chain.Chain = fakeChain{}

type fakeSigner struct{}

func (fakeSigner) Address() string { return "0x2222222222222222222222222222222222222222" }
func (fakeSigner) Sign(ctx context.Context, tx signer.UnsignedTx) (string, error) {
	return "0xsigned", nil
}

var _ signer.Signer = fakeSigner{}

// TestRunSweepsAndShutsDownWithinGracePeriod checks that Run sweeps stale
// PROCESSING intents once at startup and returns after its context is
// cancelled, within the grace period plus one second of slack.
func TestRunSweepsAndShutsDownWithinGracePeriod(t *testing.T) {
	fs := &fakeStore{}
	cfg := &config.Config{ChainID: 1337, MaxRetries: 3, WorkerCount: 2, PollIntervalMs: 50}
	sup := New(cfg, fs, fakeChain{}, fakeSigner{})
	sup.log = log.New(logWriter{}, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned an error: %v", err)
		}
	case <-time.After(GracePeriod + time.Second):
		t.Fatal("Run did not return within the grace period")
	}

	if fs.swept != 1 {
		t.Fatalf("SweepStaleProcessing called %d times, want 1", fs.swept)
	}
}
