package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/w3ico/internal/rpc"
	"github.com/Mohsinsiddi/w3ico/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is what contract bindings need from a connected node.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Provider is the wallet-provider boundary: a connection, a network id
// query and signing capability.
type Provider interface {
	Connect(ctx context.Context) (Backend, common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// RPCProvider connects to one of the configured JSON-RPC endpoints and signs
// with a local wallet.
type RPCProvider struct {
	urls   []string
	algo   rpc.Algorithm
	signer *wallet.Signer

	mu     sync.Mutex
	client *ethclient.Client
	url    string
}

// NewRPCProvider creates a provider over urls. The endpoint is chosen on
// Connect using algo.
func NewRPCProvider(urls []string, algo rpc.Algorithm, signer *wallet.Signer) *RPCProvider {
	return &RPCProvider{urls: urls, algo: algo, signer: signer}
}

// Connect selects an endpoint and dials it.
func (p *RPCProvider) Connect(ctx context.Context) (Backend, common.Address, error) {
	url, err := rpc.Select(ctx, p.urls, p.algo)
	if err != nil {
		return nil, common.Address{}, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("dial %s: %w", url, err)
	}

	p.mu.Lock()
	if p.client != nil {
		p.client.Close()
	}
	p.client, p.url = client, url
	p.mu.Unlock()

	return client, p.signer.Address(), nil
}

// URL returns the endpoint chosen by the last Connect.
func (p *RPCProvider) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// ChainID asks the connected node for its chain id.
func (p *RPCProvider) ChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return nil, ErrNotConnected
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	return id, nil
}

// TransactOpts delegates to the wallet signer.
func (p *RPCProvider) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	return p.signer.TransactOpts(ctx, chainID)
}

// Close drops the node connection.
func (p *RPCProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
