package app

import (
	"errors"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/orchestrator"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	"github.com/ethereum/go-ethereum/common"
)

// Level grades a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a user-visible message. Err carries the underlying cause
// for error notifications.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Describe turns an error into a short message for the user.
func Describe(err error) string {
	var (
		mismatch *chain.NetworkMismatchError
		revert   *contract.RevertError
	)
	switch {
	case errors.As(err, &mismatch):
		return "Wrong network: " + mismatch.Error()
	case errors.Is(err, chain.ErrNotConnected):
		return "Connect a wallet first."
	case errors.Is(err, orchestrator.ErrInvalidQuantity):
		return "Enter a whole number of tokens greater than zero."
	case errors.Is(err, orchestrator.ErrBusy):
		return "A transaction is already pending. Wait for it to settle and try again."
	case errors.Is(err, orchestrator.ErrUnauthorized):
		return "Only the contract owner can withdraw."
	case errors.Is(err, orchestrator.ErrNothingToClaim):
		return "You have no NFTs eligible for a claim."
	case errors.As(err, &revert):
		if revert.Reason != "" {
			return "Transaction reverted: " + revert.Reason
		}
		return "Transaction reverted."
	case errors.Is(err, contract.ErrUnconfirmed):
		msg := "Transaction was sent but its confirmation was not observed; it may still confirm."
		var opErr *orchestrator.OpError
		if errors.As(err, &opErr) && opErr.Hash != (common.Hash{}) {
			msg += " Track it with hash " + opErr.Hash.Hex() + "."
		}
		return msg
	case errors.Is(err, contract.ErrTransactionRejected):
		return "Transaction was not sent: " + err.Error()
	case errors.Is(err, statesync.ErrSyncFailure):
		return "Could not read contract state. Try again."
	}
	return err.Error()
}
