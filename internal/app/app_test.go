package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/app"
	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/orchestrator"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	user     = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	deployer = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func tokens(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), oneToken) }

type fakeProvider struct {
	mu       sync.Mutex
	chainID  int64
	connects int
	optsErr  error
}

func (p *fakeProvider) Connect(context.Context) (chain.Backend, common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connects++
	return nil, user, nil
}

func (p *fakeProvider) ChainID(context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return big.NewInt(p.chainID), nil
}

func (p *fakeProvider) TransactOpts(context.Context, *big.Int) (*bind.TransactOpts, error) {
	if p.optsErr != nil {
		return nil, p.optsErr
	}
	return &bind.TransactOpts{From: user}, nil
}

func (p *fakeProvider) switchTo(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chainID = id
}

// fakeContract plays the deployed ICO contract.
type fakeContract struct {
	mu      sync.Mutex
	minted  *big.Int
	balance *big.Int
	price   *big.Int
	owner   common.Address
	nfts    int64
	reads   int
	values  []*big.Int
	writes  int
}

func newFakeContract() *fakeContract {
	return &fakeContract{
		minted:  tokens(120),
		balance: tokens(0),
		price:   big.NewInt(1_000_000_000_000_000),
		owner:   deployer,
	}
}

func (c *fakeContract) read() {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
}

func (c *fakeContract) ReadMintedCount(context.Context, *chain.Handle) (*big.Int, error) {
	c.read()
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.minted), nil
}

func (c *fakeContract) ReadBalanceOf(context.Context, *chain.Handle, common.Address) (*big.Int, error) {
	c.read()
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance), nil
}

func (c *fakeContract) ReadTokenLimit(context.Context, *chain.Handle) (*big.Int, error) {
	c.read()
	return tokens(10000), nil
}

func (c *fakeContract) ReadPrice(context.Context, *chain.Handle) (*big.Int, error) {
	c.read()
	return new(big.Int).Set(c.price), nil
}

func (c *fakeContract) ReadOwner(context.Context, *chain.Handle) (common.Address, error) {
	c.read()
	return c.owner, nil
}

func (c *fakeContract) ReadOwnedNFTsCount(context.Context, *chain.Handle) (*big.Int, error) {
	c.read()
	return big.NewInt(c.nfts), nil
}

func (c *fakeContract) confirmed(method string, apply func()) *contract.Tx {
	c.mu.Lock()
	c.writes++
	hash := common.BigToHash(big.NewInt(int64(c.writes)))
	c.mu.Unlock()
	return contract.NewTx(method, hash, func(context.Context) (*types.Receipt, error) {
		c.mu.Lock()
		apply()
		c.mu.Unlock()
		return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}, nil
	})
}

func (c *fakeContract) Mint(_ context.Context, _ *chain.Handle, quantity, value *big.Int) (*contract.Tx, error) {
	c.mu.Lock()
	c.values = append(c.values, value)
	c.mu.Unlock()
	raw := new(big.Int).Mul(quantity, oneToken)
	return c.confirmed("mint", func() {
		c.minted.Add(c.minted, raw)
		c.balance.Add(c.balance, raw)
	}), nil
}

func (c *fakeContract) Claim(context.Context, *chain.Handle) (*contract.Tx, error) {
	return c.confirmed("claim", func() {
		raw := tokens(10 * c.nfts)
		c.minted.Add(c.minted, raw)
		c.balance.Add(c.balance, raw)
		c.nfts = 0
	}), nil
}

func (c *fakeContract) Withdraw(context.Context, *chain.Handle) (*contract.Tx, error) {
	return c.confirmed("withdraw", func() {}), nil
}

func (c *fakeContract) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type harness struct {
	provider *fakeProvider
	contract *fakeContract
	app      *app.App

	mu    sync.Mutex
	notes []app.Notification
}

func newHarness(t *testing.T, chainID int64) *harness {
	t.Helper()
	h := &harness{provider: &fakeProvider{chainID: chainID}, contract: newFakeContract()}
	session := chain.NewManager(h.provider, 4)
	syncer := statesync.New(session, h.contract)
	orch := orchestrator.New(session, h.contract, syncer)
	h.app = app.New(session, syncer, orch, app.NotifierFunc(func(n app.Notification) {
		h.mu.Lock()
		h.notes = append(h.notes, n)
		h.mu.Unlock()
	}))
	return h
}

func (h *harness) last() app.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.notes) == 0 {
		return app.Notification{}
	}
	return h.notes[len(h.notes)-1]
}

func TestConnectWalletSyncsOnce(t *testing.T) {
	h := newHarness(t, 4)

	s, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Connected)
	assert.Equal(t, app.LevelInfo, h.last().Level)
	assert.Contains(t, h.last().Message, "0x123...5678")
	assert.Contains(t, h.last().Message, "Rinkeby (4)")

	snap, ok := h.app.Snapshot()
	require.True(t, ok)
	assert.Equal(t, tokens(120).String(), snap.MintedCount.String())
	reads := h.contract.reads

	again, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s, again)
	assert.Equal(t, 1, h.provider.connects)
	assert.Equal(t, reads, h.contract.reads, "no second full sync")
}

func TestConnectWalletWrongNetwork(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.app.ConnectWallet(context.Background())
	require.ErrorIs(t, err, chain.ErrNetworkMismatch)

	n := h.last()
	assert.Equal(t, app.LevelError, n.Level)
	assert.Contains(t, n.Message, "Wrong network")
	assert.ErrorIs(t, n.Err, chain.ErrNetworkMismatch)

	assert.False(t, h.app.Session().Connected)
	_, ok := h.app.Snapshot()
	assert.False(t, ok, "no snapshot is fetched")
	assert.Zero(t, h.contract.reads)
}

func TestMintEndToEnd(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	res, err := h.app.SubmitMint(context.Background(), "5")
	require.NoError(t, err)

	require.Len(t, h.contract.values, 1)
	assert.Equal(t, "5000000000000000", h.contract.values[0].String())
	assert.Equal(t, tokens(125).String(), res.Snapshot.MintedCount.String())
	assert.Equal(t, tokens(5).String(), res.Snapshot.OwnedBalance.String())
	assert.Equal(t, orchestrator.OpNone, h.app.Pending())

	n := h.last()
	assert.Equal(t, app.LevelSuccess, n.Level)
	assert.Contains(t, n.Message, "Minted 5 tokens")
}

func TestMintInvalidInputNotifies(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	_, err = h.app.SubmitMint(context.Background(), "zero")
	assert.ErrorIs(t, err, orchestrator.ErrInvalidQuantity)
	assert.Equal(t, app.LevelError, h.last().Level)
	assert.Zero(t, h.contract.writeCount())
}

func TestUnauthorizedWithdrawNotifies(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	_, err = h.app.SubmitWithdraw(context.Background())
	assert.ErrorIs(t, err, orchestrator.ErrUnauthorized)
	assert.Equal(t, "Only the contract owner can withdraw.", h.last().Message)
	assert.Zero(t, h.contract.writeCount())
}

func TestOwnerWithdraw(t *testing.T) {
	h := newHarness(t, 4)
	h.contract.owner = user
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	_, err = h.app.SubmitWithdraw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, app.LevelSuccess, h.last().Level)
}

func TestWatchOnlyOwnerWithdrawIsRejected(t *testing.T) {
	h := newHarness(t, 4)
	h.contract.owner = user
	h.provider.optsErr = errors.New("wallet is watch-only and cannot sign: watcher")
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)
	before, _ := h.app.Snapshot()

	_, err = h.app.SubmitWithdraw(context.Background())
	require.ErrorIs(t, err, contract.ErrTransactionRejected)
	assert.Equal(t, orchestrator.OpNone, h.app.Pending())
	assert.Zero(t, h.contract.writeCount())

	n := h.last()
	assert.Equal(t, app.LevelError, n.Level)
	assert.Contains(t, n.Message, "Transaction was not sent")

	after, ok := h.app.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before, after, "snapshot is untouched")
}

func TestClaimWithoutNFTs(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	_, err = h.app.SubmitClaim(context.Background())
	assert.ErrorIs(t, err, orchestrator.ErrNothingToClaim)
	assert.Zero(t, h.contract.writeCount())
}

func TestClaimWithNFTs(t *testing.T) {
	h := newHarness(t, 4)
	h.contract.nfts = 2
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	res, err := h.app.SubmitClaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tokens(20).String(), res.Snapshot.OwnedBalance.String())
	assert.Contains(t, h.last().Message, "Claimed 20 tokens")
}

func TestNetworkSwitchMidSessionResets(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	h.provider.switchTo(5)

	_, err = h.app.SubmitMint(context.Background(), "1")
	require.ErrorIs(t, err, chain.ErrNetworkMismatch)
	assert.Zero(t, h.contract.writeCount())
	assert.False(t, h.app.Session().Connected)
	_, ok := h.app.Snapshot()
	assert.False(t, ok)
	assert.Equal(t, orchestrator.OpNone, h.app.Pending())
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	h.app.Disconnect()
	assert.False(t, h.app.Session().Connected)
	_, ok := h.app.Snapshot()
	assert.False(t, ok)

	_, err = h.app.SubmitMint(context.Background(), "1")
	assert.ErrorIs(t, err, chain.ErrNotConnected)
}

func TestWatchRefreshes(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan statesync.Snapshot, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.app.Watch(ctx, 5*time.Millisecond, func(snap statesync.Snapshot, err error) {
			if err == nil {
				select {
				case got <- snap:
				default:
				}
			}
		})
	}()

	select {
	case snap := <-got:
		assert.Equal(t, tokens(120).String(), snap.MintedCount.String())
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh within 2s")
	}
	cancel()
	<-done
}

func TestWatchNotifiesFailures(t *testing.T) {
	h := newHarness(t, 4)
	_, err := h.app.ConnectWallet(context.Background())
	require.NoError(t, err)
	h.app.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 1)
	go h.app.Watch(ctx, 5*time.Millisecond, func(_ statesync.Snapshot, err error) {
		select {
		case errs <- err:
		default:
		}
	})

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, statesync.ErrSyncFailure)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh within 2s")
	}
	cancel()
	assert.Equal(t, app.LevelError, h.last().Level)
}

func TestSetNotifierNilDiscards(t *testing.T) {
	h := newHarness(t, 4)
	h.app.SetNotifier(nil)

	_, err := h.app.SubmitMint(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, app.Notification{}, h.last())
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{chain.ErrNotConnected, "Connect a wallet first."},
		{orchestrator.ErrBusy, "A transaction is already pending. Wait for it to settle and try again."},
		{orchestrator.ErrNothingToClaim, "You have no NFTs eligible for a claim."},
		{&orchestrator.OpError{Op: orchestrator.OpMinting, Err: &contract.RevertError{Method: "mint", Reason: "Sold out"}}, "Transaction reverted: Sold out"},
		{&contract.RevertError{Method: "claim"}, "Transaction reverted."},
		{fmt.Errorf("%w: boom", statesync.ErrSyncFailure), "Could not read contract state. Try again."},
		{errors.New("something else"), "something else"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, app.Describe(tc.err))
	}
	assert.Contains(t, app.Describe(fmt.Errorf("%w: declined", contract.ErrTransactionRejected)), "Transaction was not sent")

	hash := common.HexToHash("0xabc")
	unconfirmed := &orchestrator.OpError{
		Op:   orchestrator.OpMinting,
		Hash: hash,
		Err:  fmt.Errorf("%w: mint: %w", contract.ErrUnconfirmed, context.Canceled),
	}
	msg := app.Describe(unconfirmed)
	assert.Contains(t, msg, "may still confirm")
	assert.Contains(t, msg, hash.Hex())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", app.LevelInfo.String())
	assert.Equal(t, "success", app.LevelSuccess.String())
	assert.Equal(t, "warn", app.LevelWarn.String())
	assert.Equal(t, "error", app.LevelError.String())
}
