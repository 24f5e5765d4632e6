package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCChain talks to a single EVM-style JSON-RPC endpoint via ethclient:
// DialContext, PendingNonceAt, SuggestGasPrice, HeaderByNumber.
type RPCChain struct {
	client *ethclient.Client
}

// Dial connects to rpcURL.
func Dial(ctx context.Context, rpcURL string) (*RPCChain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, parseErr(err)
	}
	return &RPCChain{client: client}, nil
}

// Close releases the underlying RPC connection.
func (c *RPCChain) Close() {
	c.client.Close()
}

func (c *RPCChain) GetNonce(ctx context.Context, address string) (int64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, common.HexToAddress(address))
	if err != nil {
		return 0, parseErr(err)
	}
	return int64(nonce), nil
}

func (c *RPCChain) GetGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, parseErr(err)
	}
	return price, nil
}

func (c *RPCChain) SendRaw(ctx context.Context, signedHex string) (string, error) {
	raw := strings.TrimPrefix(signedHex, "0x")
	var tx types.Transaction
	data, err := hex.DecodeString(raw)
	if err != nil {
		return "", parseErr(fmt.Errorf("decode signed tx: %w", err))
	}
	if err := tx.UnmarshalBinary(data); err != nil {
		return "", parseErr(fmt.Errorf("unmarshal signed tx: %w", err))
	}
	if err := c.client.SendTransaction(ctx, &tx); err != nil {
		return "", parseErr(err)
	}
	return tx.Hash().Hex(), nil
}

func (c *RPCChain) GetTx(ctx context.Context, hash string) (*TxResponse, error) {
	tx, isPending, err := c.client.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		if err == ethereum.NotFound {
			return nil, nil
		}
		return nil, parseErr(err)
	}
	return &TxResponse{Hash: tx.Hash().Hex(), Pending: isPending}, nil
}

// WaitFor polls for a receipt until confirmations blocks have landed on
// top of it, bounded at 60 seconds.
func (c *RPCChain) WaitFor(ctx context.Context, hash string, confirmations uint64) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	txHash := common.HexToHash(hash)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			if confirmations <= 1 {
				return toReceipt(receipt), nil
			}
			head, herr := c.client.HeaderByNumber(ctx, nil)
			if herr == nil && head.Number.Uint64() >= receipt.BlockNumber.Uint64()+confirmations-1 {
				return toReceipt(receipt), nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-ticker.C:
		}
	}
}

func toReceipt(r *types.Receipt) *Receipt {
	return &Receipt{
		TxHash:      r.TxHash.Hex(),
		BlockNumber: r.BlockNumber.Uint64(),
		Status:      r.Status,
	}
}

var _ Chain = (*RPCChain)(nil)
