package contract_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/wallet"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func tokens(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), oneToken) }

func TestGatewayReads(t *testing.T) {
	m := newChainMock(t)
	m.returns(contract.MethodTokenCount, tokens(120))
	m.returns(contract.MethodBalanceOf, tokens(7))
	m.returns(contract.MethodTokenLimit, tokens(10000))
	m.returns(contract.MethodPrice, big.NewInt(1_000_000_000_000_000))
	m.returns(contract.MethodOwner, ownerAddr)
	m.returns(contract.MethodOwnedNFTs, big.NewInt(2))

	g := contract.NewGateway(contractAddr)
	h := m.readHandle(t)
	ctx := context.Background()

	minted, err := g.ReadMintedCount(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, tokens(120), minted)

	bal, err := g.ReadBalanceOf(ctx, h, callerAddr)
	require.NoError(t, err)
	assert.Equal(t, tokens(7), bal)

	limit, err := g.ReadTokenLimit(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, tokens(10000), limit)

	price, err := g.ReadPrice(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000), price)

	owner, err := g.ReadOwner(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, owner)

	nfts, err := g.ReadOwnedNFTsCount(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), nfts)
}

func TestGatewayReadError(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)

	_, err := g.ReadMintedCount(context.Background(), m.readHandle(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenCount")
}

func TestGatewayReadWithoutHandle(t *testing.T) {
	g := contract.NewGateway(contractAddr)
	_, err := g.ReadPrice(context.Background(), nil)
	assert.ErrorIs(t, err, chain.ErrNotConnected)
}

func TestGatewayMintSendsValue(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)
	h := m.signingHandle(t, nil)

	value := big.NewInt(5_000_000_000_000_000)
	tx, err := g.Mint(context.Background(), h, big.NewInt(5), value)
	require.NoError(t, err)
	assert.Equal(t, contract.TxSubmitted, tx.State())

	sent := m.sentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, value, sent[0].Value())
	assert.Equal(t, contractAddr, *sent[0].To())
	assert.Equal(t, tx.Hash(), sent[0].Hash())

	method, err := contract.ParsedABI.MethodById(sent[0].Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "mint", method.Name)
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), args[0])

	receipt, err := tx.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, contract.TxConfirmed, tx.State())
}

func TestGatewayClaimAndWithdrawSendNoValue(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)
	h := m.signingHandle(t, nil)

	_, err := g.Claim(context.Background(), h)
	require.NoError(t, err)
	_, err = g.Withdraw(context.Background(), h)
	require.NoError(t, err)

	sent := m.sentTxs()
	require.Len(t, sent, 2)
	for i, name := range []string{"claim", "withdraw"} {
		assert.Zero(t, sent[i].Value().Sign())
		method, err := contract.ParsedABI.MethodById(sent[i].Data()[:4])
		require.NoError(t, err)
		assert.Equal(t, name, method.Name)
	}
}

func TestGatewayWriteNeedsSigner(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)

	_, err := g.Claim(context.Background(), m.readHandle(t))
	assert.ErrorIs(t, err, contract.ErrTransactionRejected)
	assert.Empty(t, m.sentTxs())
}

func TestGatewayDeclinedSignature(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)
	h := m.signingHandle(t, func(*types.Transaction) bool { return false })

	_, err := g.Mint(context.Background(), h, big.NewInt(1), big.NewInt(1))
	assert.ErrorIs(t, err, contract.ErrTransactionRejected)
	assert.ErrorIs(t, err, wallet.ErrSignatureDeclined)
	assert.Empty(t, m.sentTxs())
}

func TestGatewayRevertDuringEstimation(t *testing.T) {
	m := newChainMock(t)
	m.estimate = revertError("Not enough ETH")
	g := contract.NewGateway(contractAddr)
	h := m.signingHandle(t, nil)
	h.Opts.GasLimit = 0

	_, err := g.Mint(context.Background(), h, big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, contract.ErrTransactionReverted)

	var revert *contract.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "mint", revert.Method)
	assert.Equal(t, "Not enough ETH", revert.Reason)
	assert.Empty(t, m.sentTxs())
}

func TestGatewayRevertAfterBroadcast(t *testing.T) {
	m := newChainMock(t)
	m.status = types.ReceiptStatusFailed
	m.reverting(contract.MethodClaim, revertError("Already claimed"))
	g := contract.NewGateway(contractAddr)

	tx, err := g.Claim(context.Background(), m.signingHandle(t, nil))
	require.NoError(t, err)

	receipt, err := tx.Wait(context.Background())
	require.ErrorIs(t, err, contract.ErrTransactionReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, contract.TxReverted, tx.State())

	var revert *contract.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, "Already claimed", revert.Reason)
	assert.Equal(t, tx.Hash(), revert.Hash)

	_, again := tx.Wait(context.Background())
	assert.Equal(t, err, again, "terminal state is sticky")
}

func TestGatewayDoesNotShareOpts(t *testing.T) {
	m := newChainMock(t)
	g := contract.NewGateway(contractAddr)
	h := m.signingHandle(t, nil)

	_, err := g.Mint(context.Background(), h, big.NewInt(1), big.NewInt(42))
	require.NoError(t, err)
	assert.Nil(t, h.Opts.Value, "the handle's transactor must not be mutated")
}
