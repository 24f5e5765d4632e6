// Package supervisor owns the worker's global, per-process singletons —
// the Nonce Coordinator, In-flight Registry, Work Queue, and Submission
// Lock — and forks the Producer and N Workers over them, propagating a
// single shutdown signal to every task. The store and chain clients are
// acquired and closed by the caller, not by this package.
//
// Shutdown is signal-driven: the root context is cancelled on
// SIGINT/SIGTERM, and a WaitGroup is joined with a bounded grace period.
package supervisor

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/nemeth06/settlement-worker/internal/chain"
	"github.com/nemeth06/settlement-worker/internal/config"
	"github.com/nemeth06/settlement-worker/internal/logging"
	"github.com/nemeth06/settlement-worker/internal/nonce"
	"github.com/nemeth06/settlement-worker/internal/processor"
	"github.com/nemeth06/settlement-worker/internal/producer"
	"github.com/nemeth06/settlement-worker/internal/queue"
	"github.com/nemeth06/settlement-worker/internal/registry"
	"github.com/nemeth06/settlement-worker/internal/signer"
	"github.com/nemeth06/settlement-worker/internal/store"
	"github.com/nemeth06/settlement-worker/internal/worker"
)

// GracePeriod bounds how long Run waits for in-flight work to drain after
// shutdown is signalled.
const GracePeriod = 5 * time.Second

// Supervisor forks and joins the producer/worker pipeline.
type Supervisor struct {
	cfg    *config.Config
	store  store.Store
	chain  chain.Chain
	signer signer.Signer
	log    *log.Logger
}

// New constructs a Supervisor over already-acquired capabilities. The
// caller owns closing st and ch after Run returns.
func New(cfg *config.Config, st store.Store, ch chain.Chain, sgn signer.Signer) *Supervisor {
	return &Supervisor{cfg: cfg, store: st, chain: ch, signer: sgn, log: logging.New("supervisor")}
}

// Run sweeps stale PROCESSING intents back to PENDING, then forks one
// Producer and cfg.WorkerCount Workers sharing one Nonce Coordinator, one
// In-flight Registry, one Queue, and one Submission Lock. It blocks until
// ctx is cancelled or a SIGINT/SIGTERM arrives, then propagates shutdown
// to every task and waits (bounded by GracePeriod) for them to exit.
func (s *Supervisor) Run(ctx context.Context) error {
	if n, err := s.store.SweepStaleProcessing(ctx); err != nil {
		s.log.Printf("stale PROCESSING sweep failed: %v", err)
	} else if n > 0 {
		s.log.Printf("swept %d stale PROCESSING intents back to PENDING", n)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator := nonce.NewCoordinator()
	reg := registry.New()
	q := queue.New()
	lock := worker.NewSubmissionLock()

	prod := producer.New(s.cfg.PollInterval(), s.store, q, reg, logging.New("producer"))

	procCfg := processor.Config{ChainID: s.cfg.ChainID, MaxRetries: s.cfg.MaxRetries}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		prod.Run(ctx)
	}()

	for i := 0; i < s.cfg.WorkerCount; i++ {
		proc := processor.New(coordinator, s.signer, s.chain, s.store, procCfg, logging.New("processor"))
		w := worker.New(i, q, reg, lock, proc, logging.New("worker-"+strconv.Itoa(i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	<-ctx.Done()
	s.log.Printf("shutdown signalled, waiting up to %s for in-flight work", GracePeriod)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Printf("all tasks exited cleanly")
	case <-time.After(GracePeriod):
		s.log.Printf("grace period elapsed, proceeding with %d intents still released from the registry on exit", reg.Len())
	}
	return nil
}
