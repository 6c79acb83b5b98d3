package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3ico/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Transaction errors.
var (
	ErrTransactionRejected = errors.New("transaction rejected")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrUnconfirmed         = errors.New("transaction sent but not confirmed")
)

// RevertError describes an on-chain execution failure. Hash is zero when the
// revert was detected before broadcast.
type RevertError struct {
	Method string
	Hash   common.Hash
	Reason string
}

func (e *RevertError) Error() string {
	msg := e.Method + " reverted"
	if e.Hash != (common.Hash{}) {
		msg += " in " + e.Hash.Hex()
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *RevertError) Unwrap() error { return ErrTransactionReverted }

// classifySubmitError maps a failure from building, signing or sending a
// transaction to one of the transaction error kinds.
func classifySubmitError(method string, err error) error {
	if errors.Is(err, wallet.ErrSignatureDeclined) {
		return fmt.Errorf("%w: %s: %w", ErrTransactionRejected, method, err)
	}
	if reason, ok := revertReason(err); ok {
		return &RevertError{Method: method, Reason: reason}
	}
	return fmt.Errorf("%w: %s: %w", ErrTransactionRejected, method, err)
}

// revertReason reports whether err is an execution revert and extracts the
// reason string when there is one.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason, true
				}
			}
		}
	}
	msg := err.Error()
	if !strings.Contains(strings.ToLower(msg), "revert") {
		return "", false
	}
	return extractRevertReason(msg), true
}

// extractRevertReason pulls the reason out of an RPC error message.
func extractRevertReason(msg string) string {
	const marker = "execution reverted:"
	if idx := strings.Index(msg, marker); idx >= 0 {
		return strings.TrimSpace(msg[idx+len(marker):])
	}
	return ""
}
