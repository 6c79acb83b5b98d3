package contract

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/logger"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gateway is the typed binding to the deployed ICO contract. Every call
// takes a handle from the chain session so the network has been validated
// right before use.
type Gateway struct {
	address common.Address
	abi     abi.ABI
	log     *slog.Logger
}

// NewGateway binds the contract at address.
func NewGateway(address common.Address) *Gateway {
	return &Gateway{
		address: address,
		abi:     ParsedABI,
		log:     logger.Named("gateway"),
	}
}

// Address returns the contract address.
func (g *Gateway) Address() common.Address { return g.address }

func (g *Gateway) bound(h *chain.Handle) *bind.BoundContract {
	return bind.NewBoundContract(g.address, g.abi, h.Backend, h.Backend, h.Backend)
}

func (g *Gateway) call(ctx context.Context, h *chain.Handle, method string, args ...interface{}) ([]interface{}, error) {
	if h == nil {
		return nil, chain.ErrNotConnected
	}
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: h.Account}
	if err := g.bound(h).Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	g.log.Debug("call", "method", method)
	return out, nil
}

func (g *Gateway) callUint(ctx context.Context, h *chain.Handle, method string, args ...interface{}) (*big.Int, error) {
	out, err := g.call(ctx, h, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// ReadMintedCount calls tokenCount().
func (g *Gateway) ReadMintedCount(ctx context.Context, h *chain.Handle) (*big.Int, error) {
	return g.callUint(ctx, h, MethodTokenCount)
}

// ReadBalanceOf calls balanceOf(account).
func (g *Gateway) ReadBalanceOf(ctx context.Context, h *chain.Handle, account common.Address) (*big.Int, error) {
	return g.callUint(ctx, h, MethodBalanceOf, account)
}

// ReadTokenLimit calls _tokenLimit().
func (g *Gateway) ReadTokenLimit(ctx context.Context, h *chain.Handle) (*big.Int, error) {
	return g.callUint(ctx, h, MethodTokenLimit)
}

// ReadPrice calls _price(). The result is wei per whole token.
func (g *Gateway) ReadPrice(ctx context.Context, h *chain.Handle) (*big.Int, error) {
	return g.callUint(ctx, h, MethodPrice)
}

// ReadOwner calls owner().
func (g *Gateway) ReadOwner(ctx context.Context, h *chain.Handle) (common.Address, error) {
	out, err := g.call(ctx, h, MethodOwner)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// ReadOwnedNFTsCount calls ownedNFTs() as the handle's account. The contract
// counts companion NFTs held by msg.sender that have not been claimed yet.
func (g *Gateway) ReadOwnedNFTsCount(ctx context.Context, h *chain.Handle) (*big.Int, error) {
	return g.callUint(ctx, h, MethodOwnedNFTs)
}

// Mint submits mint(quantity) paying value wei.
func (g *Gateway) Mint(ctx context.Context, h *chain.Handle, quantity, value *big.Int) (*Tx, error) {
	return g.transact(ctx, h, MethodMint, value, quantity)
}

// Claim submits claim().
func (g *Gateway) Claim(ctx context.Context, h *chain.Handle) (*Tx, error) {
	return g.transact(ctx, h, MethodClaim, nil)
}

// Withdraw submits withdraw().
func (g *Gateway) Withdraw(ctx context.Context, h *chain.Handle) (*Tx, error) {
	return g.transact(ctx, h, MethodWithdraw, nil)
}

func (g *Gateway) transact(ctx context.Context, h *chain.Handle, method string, value *big.Int, args ...interface{}) (*Tx, error) {
	if !h.CanSign() {
		return nil, fmt.Errorf("%w: %s needs a signing handle", ErrTransactionRejected, method)
	}
	opts := *h.Opts
	opts.Context = ctx
	opts.Value = value

	tx, err := g.bound(h).Transact(&opts, method, args...)
	if err != nil {
		g.log.Debug("submit failed", "method", method, "err", err)
		return nil, classifySubmitError(method, err)
	}
	g.log.Debug("submitted", "method", method, "hash", tx.Hash().Hex(), "value", value)

	wait := func(ctx context.Context) (*types.Receipt, error) {
		receipt, err := bind.WaitMined(ctx, h.Backend, tx)
		if err != nil {
			return nil, err
		}
		if receipt.Status == types.ReceiptStatusFailed {
			return receipt, &RevertError{
				Method: method,
				Hash:   tx.Hash(),
				Reason: g.replayReason(ctx, h, tx, receipt),
			}
		}
		return receipt, nil
	}
	return NewTx(method, tx.Hash(), wait), nil
}

// replayReason re-executes a failed transaction at its block to recover the
// revert reason. It returns "" when the node gives nothing back.
func (g *Gateway) replayReason(ctx context.Context, h *chain.Handle, tx *types.Transaction, receipt *types.Receipt) string {
	msg := ethereum.CallMsg{
		From:  h.Account,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}
	_, err := h.Backend.CallContract(ctx, msg, receipt.BlockNumber)
	reason, _ := revertReason(err)
	return reason
}
