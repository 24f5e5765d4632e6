package chainerr

import (
	"errors"
	"testing"
)

func TestParseRPCErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		code string
		want Kind
	}{
		{"nonce too low", "nonce too low: current 7, tx 5", "", KindNonceTooLow},
		{"nonce too low by code", "boom", "nonce_too_low", KindNonceTooLow},
		{"replacement fee", "replacement fee too low", "", KindReplacementFeeTooLow},
		{"replacement underpriced", "replacement transaction underpriced", "", KindReplacementFeeTooLow},
		{"insufficient funds", "insufficient funds for gas * price + value", "", KindInsufficientFunds},
		{"insufficient balance", "insufficient balance", "", KindInsufficientFunds},
		{"reverted", "execution reverted: custom reason", "", KindExecutionReverted},
		{"reverted short", "reverted", "", KindExecutionReverted},
		{"network", "network timeout talking to node", "", KindNetworkError},
		{"econnrefused", "dial tcp: ECONNREFUSED", "", KindNetworkError},
		{"unknown", "some never before seen failure", "", KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseRPCError(errors.New(tc.msg), tc.code)
			if got.Kind() != tc.want {
				t.Fatalf("ParseRPCError(%q, %q).Kind() = %v, want %v", tc.msg, tc.code, got.Kind(), tc.want)
			}
		})
	}
}

func TestParseRPCErrorNonceExtraction(t *testing.T) {
	got := ParseRPCError(errors.New("nonce too low: current 7, tx 5"), "")
	nonceErr, ok := got.(*NonceTooLowError)
	if !ok {
		t.Fatalf("got %T, want *NonceTooLowError", got)
	}
	if nonceErr.CurrentNonce != 7 || nonceErr.TxNonce != 5 {
		t.Fatalf("got current=%d tx=%d, want current=7 tx=5", nonceErr.CurrentNonce, nonceErr.TxNonce)
	}
}

func TestParseRPCErrorNonceExtractionFallback(t *testing.T) {
	got := ParseRPCError(errors.New("nonce too low"), "").(*NonceTooLowError)
	if got.CurrentNonce != -1 || got.TxNonce != -1 {
		t.Fatalf("got current=%d tx=%d, want sentinel -1/-1", got.CurrentNonce, got.TxNonce)
	}
}

func TestIsTransient(t *testing.T) {
	transient := []SettlementError{
		&NonceTooLowError{},
		&ReplacementFeeTooLowError{},
		&NetworkError{},
	}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Errorf("%T should be transient", err)
		}
	}

	permanent := []SettlementError{
		&ExecutionRevertedError{},
		&InsufficientFundsError{},
		&ValidationError{},
		&StoreError{},
		&UnknownError{Cause: errors.New("x")},
	}
	for _, err := range permanent {
		if IsTransient(err) {
			t.Errorf("%T should be permanent", err)
		}
	}
}
