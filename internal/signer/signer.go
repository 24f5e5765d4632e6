// Package signer defines the transaction-signing capability and an ECDSA
// implementation built on crypto.HexToECDSA / PubkeyToAddress / types.SignTx,
// delegating the actual cryptography to go-ethereum rather than
// hand-rolling ECDSA signing.
package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nemeth06/settlement-worker/internal/chainerr"
)

// UnsignedTx is the built-but-unsigned transaction the Processor hands to
// the Signer.
type UnsignedTx struct {
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    int64
	ChainID  int64
}

// Signer resolves the signing identity's address and signs built
// transactions.
type Signer interface {
	Address() string
	Sign(ctx context.Context, tx UnsignedTx) (string, error)
}

// ECDSASigner holds one private key, the single signing identity this
// worker targets.
type ECDSASigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewECDSASigner parses privateKeyHex (with or without "0x" prefix) and
// derives the signing address via crypto.HexToECDSA + crypto.PubkeyToAddress.
func NewECDSASigner(privateKeyHex string) (*ECDSASigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, &chainerr.ValidationError{Field: "privateKey", Message: err.Error()}
	}
	address := crypto.PubkeyToAddress(key.PublicKey)
	return &ECDSASigner{key: key, address: address}, nil
}

func (s *ECDSASigner) Address() string {
	return s.address.Hex()
}

// Sign builds an EIP-155-signed legacy transaction and RLP-encodes it to
// a hex string via NewTransaction + SignTx(..., NewEIP155Signer(...)).
func (s *ECDSASigner) Sign(_ context.Context, unsigned UnsignedTx) (string, error) {
	tx := types.NewTransaction(
		uint64(unsigned.Nonce),
		common.HexToAddress(unsigned.To),
		unsigned.Value,
		unsigned.GasLimit,
		unsigned.GasPrice,
		unsigned.Data,
	)

	signer := types.NewEIP155Signer(big.NewInt(unsigned.ChainID))
	signed, err := types.SignTx(tx, signer, s.key)
	if err != nil {
		return "", &chainerr.ValidationError{Field: "sign", Message: err.Error()}
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", &chainerr.ValidationError{Field: "sign", Message: err.Error()}
	}
	return "0x" + common.Bytes2Hex(raw), nil
}

var _ Signer = (*ECDSASigner)(nil)
