// Package chain defines the EVM JSON-RPC capability the settlement worker
// depends on, and an ethclient-backed implementation built on the
// PendingNonceAt / SuggestGasPrice / SendTransaction call sequence, with
// HeaderByNumber polling for confirmation depth.
package chain

import (
	"context"
	"math/big"

	"github.com/nemeth06/settlement-worker/internal/chainerr"
)

// TxResponse is the subset of an on-chain transaction's state the worker
// cares about.
type TxResponse struct {
	Hash      string
	BlockHash string
	Pending   bool
}

// Receipt is the subset of a mined transaction's receipt the worker cares
// about.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Status      uint64 // 1 = success, 0 = failure
}

// Chain is the EVM-style JSON-RPC capability this worker depends on.
type Chain interface {
	GetNonce(ctx context.Context, address string) (int64, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	SendRaw(ctx context.Context, signedHex string) (string, error)
	GetTx(ctx context.Context, hash string) (*TxResponse, error)
	// WaitFor blocks (bounded at 60s) until confirmations blocks have
	// landed on top of hash, or returns nil if it never confirms in time.
	WaitFor(ctx context.Context, hash string, confirmations uint64) (*Receipt, error)
}

func parseErr(cause error) chainerr.SettlementError {
	return chainerr.ParseRPCError(cause, "")
}
