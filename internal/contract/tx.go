package contract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxState is the lifecycle of a broadcast transaction.
type TxState int

const (
	TxSubmitted TxState = iota
	TxConfirmed
	TxReverted
)

func (s TxState) String() string {
	switch s {
	case TxConfirmed:
		return "confirmed"
	case TxReverted:
		return "reverted"
	default:
		return "submitted"
	}
}

// Tx is a handle to a submitted transaction.
type Tx struct {
	Method string

	hash common.Hash
	wait func(ctx context.Context) (*types.Receipt, error)

	mu      sync.Mutex
	state   TxState
	receipt *types.Receipt
	err     error
}

// NewTx wraps a submitted transaction. wait blocks until the transaction is
// mined and returns a *RevertError for a failed receipt.
func NewTx(method string, hash common.Hash, wait func(ctx context.Context) (*types.Receipt, error)) *Tx {
	return &Tx{Method: method, hash: hash, wait: wait}
}

// Hash returns the transaction hash.
func (t *Tx) Hash() common.Hash { return t.hash }

// State returns the last observed state.
func (t *Tx) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Receipt returns the receipt once the transaction reached a terminal state.
func (t *Tx) Receipt() *types.Receipt {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receipt
}

// Wait blocks until the transaction is mined. It returns the receipt on
// success and a *RevertError when execution failed. Any other failure leaves
// the transaction in TxSubmitted and is reported as ErrUnconfirmed, since the
// broadcast transaction may still be mined.
func (t *Tx) Wait(ctx context.Context) (*types.Receipt, error) {
	t.mu.Lock()
	if t.state != TxSubmitted {
		r, err := t.receipt, t.err
		t.mu.Unlock()
		return r, err
	}
	t.mu.Unlock()

	receipt, err := t.wait(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	var revert *RevertError
	switch {
	case err == nil:
		t.state = TxConfirmed
		t.receipt = receipt
	case errors.As(err, &revert):
		t.state = TxReverted
		t.receipt = receipt
		t.err = err
	default:
		err = fmt.Errorf("%w: %s %s: %w", ErrUnconfirmed, t.Method, t.hash.Hex(), err)
	}
	return receipt, err
}
