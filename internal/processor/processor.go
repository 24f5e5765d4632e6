// Package processor implements the single-attempt settlement pipeline:
// validate, allocate a nonce, build, sign, broadcast, and mark an intent
// SETTLED — or persist the classified failure and re-surface it to the
// caller's retry policy.
package processor

import (
	"context"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nemeth06/settlement-worker/internal/chain"
	"github.com/nemeth06/settlement-worker/internal/chainerr"
	"github.com/nemeth06/settlement-worker/internal/model"
	"github.com/nemeth06/settlement-worker/internal/nonce"
	"github.com/nemeth06/settlement-worker/internal/signer"
	"github.com/nemeth06/settlement-worker/internal/store"
)

// Config carries the subset of the worker's configuration the processor
// needs.
type Config struct {
	ChainID    int64
	MaxRetries int
}

// Processor runs one attempt of the settle pipeline for a single intent.
// It is invoked by the Worker under the submission lock.
type Processor struct {
	coordinator *nonce.Coordinator
	signer      signer.Signer
	chain       chain.Chain
	store       store.Store
	cfg         Config
	log         *log.Logger
}

// New constructs a Processor.
func New(coordinator *nonce.Coordinator, sgn signer.Signer, ch chain.Chain, st store.Store, cfg Config, logger *log.Logger) *Processor {
	return &Processor{coordinator: coordinator, signer: sgn, chain: ch, store: st, cfg: cfg, log: logger}
}

// ProcessError is the outcome Process reports on failure: the classified
// SettlementError, plus whether the durable consequence already persisted
// was terminal (FAILED + DLQ row) or left the intent retryable (PENDING
// with budget remaining). A caller driving its own in-process retry loop
// uses Terminal to stop immediately instead of attempting again.
type ProcessError struct {
	chainerr.SettlementError
	Terminal bool
}

// Process runs one settlement attempt for intent. final tells Process this
// is the caller's last in-process attempt for this item: a transient
// failure with retry budget remaining is only persisted as the one
// "decided to retry" event (IncrementRetry + back to PENDING) when final is
// true, never on an earlier in-process attempt, so retryCount advances
// once per queue item rather than once per in-process tick. Permanent
// failures and exhausted retry budgets are always persisted as terminal
// regardless of final. On success Process returns nil; on failure it has
// already persisted every durable consequence (status, DLQ row, retry
// increment, nonce resync) before returning, so a cancellation past this
// point loses no state.
func (p *Processor) Process(ctx context.Context, intent model.Intent, final bool) error {
	p.log.Printf("processing intent %s", intent.ID)

	if err := p.store.SetStatus(ctx, intent.ID, model.StatusProcessing, ""); err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	from := p.signer.Address()

	if err := validate(intent, from); err != nil {
		return p.fail(ctx, intent, err, final)
	}

	chainNonce, err := p.allocateNonce(ctx, from)
	if err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	gasPrice, err := p.chain.GetGasPrice(ctx)
	if err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	value, _ := new(big.Int).SetString(intent.Value, 10)
	gasLimit, _ := new(big.Int).SetString(intent.GasLimit, 10)

	unsigned := signer.UnsignedTx{
		To:       intent.To,
		Value:    value,
		Data:     common.FromHex(intent.Calldata),
		GasLimit: gasLimit.Uint64(),
		GasPrice: gasPrice,
		Nonce:    chainNonce,
		ChainID:  p.cfg.ChainID,
	}

	signedHex, err := p.signer.Sign(ctx, unsigned)
	if err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	hash, err := p.chain.SendRaw(ctx, signedHex)
	if err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	if err := p.store.SetStatus(ctx, intent.ID, model.StatusSettled, hash); err != nil {
		return p.fail(ctx, intent, chainerr.ParseRPCError(err, ""), final)
	}

	p.coordinator.Advance()
	p.log.Printf("settled intent %s hash=%s nonce=%d", intent.ID, hash, chainNonce)
	return nil
}

// allocateNonce seeds the coordinator from the chain if uninitialized,
// otherwise returns its current value.
func (p *Processor) allocateNonce(ctx context.Context, from string) (int64, error) {
	if p.coordinator.Uninitialized() {
		n, err := p.chain.GetNonce(ctx, from)
		if err != nil {
			return 0, err
		}
		return p.coordinator.Seed(n), nil
	}
	return p.coordinator.Current(), nil
}

// validate maps every malformed-payload case explicitly to a
// ValidationError rather than surfacing an unclassified error.
func validate(intent model.Intent, from string) chainerr.SettlementError {
	if !common.IsHexAddress(intent.To) {
		return &chainerr.ValidationError{Field: "to", Message: "not a well-formed address"}
	}
	if !common.IsHexAddress(from) {
		return &chainerr.ValidationError{Field: "from", Message: "not a well-formed address"}
	}
	value, ok := new(big.Int).SetString(intent.Value, 10)
	if !ok || value.Sign() < 0 {
		return &chainerr.ValidationError{Field: "value", Message: "must be a non-negative decimal integer"}
	}
	if _, ok := new(big.Int).SetString(intent.GasLimit, 10); !ok {
		return &chainerr.ValidationError{Field: "gasLimit", Message: "must be a decimal integer"}
	}
	if !strings.HasPrefix(intent.Calldata, "0x") {
		return &chainerr.ValidationError{Field: "calldata", Message: "must be hex-prefixed"}
	}
	return nil
}

// fail persists every durable consequence of a classified error that this
// attempt owns and then re-surfaces it to the caller, tagged with whether
// the outcome was terminal. A transient failure with retry budget
// remaining only has its retry persisted (IncrementRetry + back to
// PENDING) when final is true; an earlier in-process attempt just records
// the error for the audit trail and reports itself non-terminal so the
// caller's own retry loop can try again without double-counting.
func (p *Processor) fail(ctx context.Context, intent model.Intent, settleErr chainerr.SettlementError, final bool) error {
	formatted := settleErr.Error()
	if err := p.store.RecordError(ctx, intent.ID, formatted); err != nil {
		p.log.Printf("failed to record error for intent %s: %v", intent.ID, err)
	}

	transient := chainerr.IsTransient(settleErr)

	if transient && intent.RetryCount < p.cfg.MaxRetries {
		if nonceErr, ok := settleErr.(*chainerr.NonceTooLowError); ok {
			p.coordinator.ResyncTo(nonceErr.CurrentNonce)
		}
		if !final {
			p.log.Printf("intent %s transient failure, retrying in-process: %s", intent.ID, formatted)
			return &ProcessError{SettlementError: settleErr, Terminal: false}
		}
		if err := p.store.IncrementRetry(ctx, intent.ID); err != nil {
			p.log.Printf("failed to increment retry for intent %s: %v", intent.ID, err)
		}
		if err := p.store.SetStatus(ctx, intent.ID, model.StatusPending, ""); err != nil {
			p.log.Printf("failed to reset status for intent %s: %v", intent.ID, err)
		}
		p.log.Printf("intent %s transient failure, retrying: %s", intent.ID, formatted)
		return &ProcessError{SettlementError: settleErr, Terminal: false}
	}

	reason := model.ReasonPermanentError
	if transient {
		reason = model.ReasonMaxRetries
	}
	if err := p.store.DLQ(ctx, intent.ID, reason, formatted); err != nil {
		p.log.Printf("failed to DLQ intent %s: %v", intent.ID, err)
	}
	p.log.Printf("intent %s terminal failure (%s): %s", intent.ID, reason, formatted)
	return &ProcessError{SettlementError: settleErr, Terminal: true}
}
