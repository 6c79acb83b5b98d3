package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signing errors.
var (
	ErrWatchOnly         = errors.New("wallet is watch-only and cannot sign")
	ErrSignatureDeclined = errors.New("signature declined")
)

// Approver is asked before every signature. Returning false declines it.
type Approver func(tx *types.Transaction) bool

// Signer turns a signing wallet into go-ethereum transactors. The private
// key is pulled from the keystore at most once per Signer, so the keychain
// prompts a single time per session.
type Signer struct {
	wallet  *Wallet
	keys    KeyStore
	approve Approver

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

// NewSigner creates a signer for w. approve may be nil to sign without asking.
func NewSigner(w *Wallet, keys KeyStore, approve Approver) *Signer {
	return &Signer{wallet: w, keys: keys, approve: approve}
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.wallet.Address)
}

// TransactOpts returns a keyed transactor for chainID whose signing step is
// gated by the approver.
func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("building transactor: %w", err)
	}
	sign := opts.Signer
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if s.approve != nil && !s.approve(tx) {
			return nil, ErrSignatureDeclined
		}
		return sign(from, tx)
	}
	opts.Context = ctx
	return opts, nil
}

func (s *Signer) privateKey() (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}
	if !s.wallet.CanSign() {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, s.wallet.Name)
	}

	hexKey, err := s.keys.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if got := crypto.PubkeyToAddress(key.PublicKey); got != s.Address() {
		return nil, fmt.Errorf("%w: key for %s derives %s", ErrInvalidKey, s.wallet.Address, got.Hex())
	}
	s.key = key
	return key, nil
}
