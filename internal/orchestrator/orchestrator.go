package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Guard errors. None of them reaches the network.
var (
	ErrInvalidQuantity = errors.New("quantity must be a positive whole number")
	ErrBusy            = errors.New("another transaction is already pending")
	ErrUnauthorized    = errors.New("only the contract owner can withdraw")
	ErrNothingToClaim  = errors.New("no NFTs eligible for a claim")
)

// Op is the pending-operation slot value.
type Op int

const (
	OpNone Op = iota
	OpMinting
	OpClaiming
	OpWithdrawing
)

func (o Op) String() string {
	switch o {
	case OpMinting:
		return "minting"
	case OpClaiming:
		return "claiming"
	case OpWithdrawing:
		return "withdrawing"
	default:
		return "none"
	}
}

// failure names the error kind reported when op fails.
func (o Op) failure() string {
	switch o {
	case OpMinting:
		return "mint failed"
	case OpClaiming:
		return "claim failed"
	case OpWithdrawing:
		return "withdraw failed"
	default:
		return "operation failed"
	}
}

// Phase is a step of one operation's lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseAwaitingConfirmation
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingConfirmation:
		return "awaiting confirmation"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Event reports a phase transition. Hash is zero until the transaction has
// been broadcast.
type Event struct {
	Op    Op
	Phase Phase
	Hash  common.Hash
	Err   error
}

// Observer receives phase transitions in order.
type Observer func(Event)

// OpError wraps the cause of a failed operation.
type OpError struct {
	Op   Op
	Hash common.Hash
	Err  error
}

func (e *OpError) Error() string {
	if e.Hash != (common.Hash{}) {
		return fmt.Sprintf("%s (tx %s): %v", e.Op.failure(), e.Hash.Hex(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op.failure(), e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// MintRequest is a validated mint intent.
type MintRequest struct {
	Quantity *big.Int
}

// ParseMintRequest validates raw user input. Anything but a positive base-10
// integer is rejected.
func ParseMintRequest(input string) (MintRequest, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return MintRequest{}, fmt.Errorf("%w: empty", ErrInvalidQuantity)
	}
	q, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return MintRequest{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, input)
	}
	if q.Sign() <= 0 {
		return MintRequest{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, q)
	}
	return MintRequest{Quantity: q}, nil
}

// Result is a confirmed operation. RefreshErr is set when the follow-up
// refresh failed; Snapshot is then the last known one.
type Result struct {
	Op         Op
	Hash       common.Hash
	Receipt    *types.Receipt
	Snapshot   statesync.Snapshot
	RefreshErr error
}

// HandleSource hands out signing handles.
type HandleSource interface {
	Handle(ctx context.Context, needsSigner bool) (*chain.Handle, error)
}

// Writer is the write side of the contract gateway.
type Writer interface {
	Mint(ctx context.Context, h *chain.Handle, quantity, value *big.Int) (*contract.Tx, error)
	Claim(ctx context.Context, h *chain.Handle) (*contract.Tx, error)
	Withdraw(ctx context.Context, h *chain.Handle) (*contract.Tx, error)
}

// StateSource provides the snapshot guards read from and the refresh run
// after confirmation.
type StateSource interface {
	Snapshot() (statesync.Snapshot, bool)
	Refresh(ctx context.Context) (statesync.Snapshot, error)
}

// Orchestrator serializes mutating operations through a single pending slot.
type Orchestrator struct {
	handles HandleSource
	writer  Writer
	state   StateSource
	log     *slog.Logger

	mu       sync.Mutex
	pending  Op
	observer Observer
}

// New creates an idle orchestrator.
func New(handles HandleSource, writer Writer, state StateSource) *Orchestrator {
	return &Orchestrator{
		handles: handles,
		writer:  writer,
		state:   state,
		log:     logger.Named("orchestrator"),
	}
}

// Observe registers fn for phase events. Pass nil to stop observing.
func (o *Orchestrator) Observe(fn Observer) {
	o.mu.Lock()
	o.observer = fn
	o.mu.Unlock()
}

// Pending returns the operation currently holding the slot.
func (o *Orchestrator) Pending() Op {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// SubmitMint parses input and mints.
func (o *Orchestrator) SubmitMint(ctx context.Context, input string) (Result, error) {
	req, err := ParseMintRequest(input)
	if err != nil {
		return Result{}, err
	}
	return o.Mint(ctx, req)
}

// Mint pays price * quantity wei for quantity tokens.
func (o *Orchestrator) Mint(ctx context.Context, req MintRequest) (Result, error) {
	if req.Quantity == nil || req.Quantity.Sign() <= 0 {
		return Result{}, ErrInvalidQuantity
	}
	snap, ok := o.state.Snapshot()
	if !ok {
		return Result{}, chain.ErrNotConnected
	}
	quantity := new(big.Int).Set(req.Quantity)
	value := new(big.Int).Mul(snap.Price, quantity)

	return o.run(ctx, OpMinting, func(h *chain.Handle) (*contract.Tx, error) {
		o.log.Debug("mint", "quantity", quantity, "value", value)
		return o.writer.Mint(ctx, h, quantity, value)
	})
}

// Claim claims the free tokens for the caller's companion NFTs.
func (o *Orchestrator) Claim(ctx context.Context) (Result, error) {
	snap, ok := o.state.Snapshot()
	if !ok {
		return Result{}, chain.ErrNotConnected
	}
	if !snap.CallerOwnsClaimableNFTs {
		return Result{}, ErrNothingToClaim
	}
	return o.run(ctx, OpClaiming, func(h *chain.Handle) (*contract.Tx, error) {
		return o.writer.Claim(ctx, h)
	})
}

// Withdraw sends the collected funds to the owner.
func (o *Orchestrator) Withdraw(ctx context.Context) (Result, error) {
	snap, ok := o.state.Snapshot()
	if !ok {
		return Result{}, chain.ErrNotConnected
	}
	if !snap.CallerIsOwner {
		return Result{}, ErrUnauthorized
	}
	return o.run(ctx, OpWithdrawing, func(h *chain.Handle) (*contract.Tx, error) {
		return o.writer.Withdraw(ctx, h)
	})
}

// run drives one operation: acquire, sign, submit, wait, refresh, release.
func (o *Orchestrator) run(ctx context.Context, op Op, submit func(*chain.Handle) (*contract.Tx, error)) (Result, error) {
	if !o.acquire(op) {
		return Result{}, ErrBusy
	}
	defer o.release(op)

	o.emit(Event{Op: op, Phase: PhaseSubmitting})

	h, err := o.handles.Handle(ctx, true)
	if err != nil {
		return Result{}, o.fail(op, common.Hash{}, signerError(err))
	}
	tx, err := submit(h)
	if err != nil {
		return Result{}, o.fail(op, common.Hash{}, err)
	}

	hash := tx.Hash()
	o.emit(Event{Op: op, Phase: PhaseAwaitingConfirmation, Hash: hash})

	receipt, err := tx.Wait(ctx)
	if err != nil {
		return Result{}, o.fail(op, hash, err)
	}

	res := Result{Op: op, Hash: hash, Receipt: receipt}
	res.Snapshot, res.RefreshErr = o.state.Refresh(ctx)
	if res.RefreshErr != nil {
		o.log.Warn("refresh after confirmation failed", "op", op, "err", res.RefreshErr)
		res.Snapshot, _ = o.state.Snapshot()
	}

	o.emit(Event{Op: op, Phase: PhaseSucceeded, Hash: hash})
	o.log.Debug("confirmed", "op", op, "hash", hash.Hex())
	return res, nil
}

// signerError classifies a failure to obtain a signing handle. Session errors
// keep their kind; anything else means nothing was sent.
func signerError(err error) error {
	if errors.Is(err, chain.ErrNetworkMismatch) || errors.Is(err, chain.ErrNotConnected) {
		return err
	}
	return fmt.Errorf("%w: %w", contract.ErrTransactionRejected, err)
}

func (o *Orchestrator) fail(op Op, hash common.Hash, err error) error {
	opErr := &OpError{Op: op, Hash: hash, Err: err}
	o.emit(Event{Op: op, Phase: PhaseFailed, Hash: hash, Err: opErr})
	o.log.Debug("failed", "op", op, "err", err)
	return opErr
}

func (o *Orchestrator) acquire(op Op) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != OpNone {
		return false
	}
	o.pending = op
	return true
}

func (o *Orchestrator) release(op Op) {
	o.mu.Lock()
	if o.pending == op {
		o.pending = OpNone
	}
	o.mu.Unlock()
	o.emit(Event{Op: op, Phase: PhaseIdle})
}

func (o *Orchestrator) emit(e Event) {
	o.mu.Lock()
	fn := o.observer
	o.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}
