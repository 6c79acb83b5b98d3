package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Session errors.
var (
	ErrNetworkMismatch = errors.New("wrong network")
	ErrNotConnected    = errors.New("wallet not connected")
)

// NetworkMismatchError reports the chain a provider is on versus the one
// required.
type NetworkMismatchError struct {
	Got  int64
	Want int64
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("%s: connected to %s, switch to %s", ErrNetworkMismatch, NetworkName(e.Got), NetworkName(e.Want))
}

func (e *NetworkMismatchError) Unwrap() error { return ErrNetworkMismatch }

// State is the connection state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session is the validated wallet connection.
type Session struct {
	Connected bool
	ChainID   int64
	Address   common.Address
}

// Handle is a network-validated view of the session. Opts is set only on
// signing handles.
type Handle struct {
	Backend Backend
	Account common.Address
	ChainID *big.Int
	Opts    *bind.TransactOpts
}

// CanSign reports whether the handle carries a transactor.
func (h *Handle) CanSign() bool { return h != nil && h.Opts != nil }

// Manager owns the session lifecycle for one provider.
type Manager struct {
	provider Provider
	required int64
	log      *slog.Logger

	connectMu sync.Mutex // serializes Connect

	mu      sync.Mutex
	state   State
	session Session
	backend Backend
}

// NewManager creates a disconnected manager that only accepts requiredChainID.
func NewManager(p Provider, requiredChainID int64) *Manager {
	return &Manager{
		provider: p,
		required: requiredChainID,
		log:      logger.Named("session"),
	}
}

// RequiredChainID returns the only chain id sessions are allowed on.
func (m *Manager) RequiredChainID() int64 { return m.required }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the current session value.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Connect opens the provider and validates its network. When already
// connected it returns the existing session without touching the provider.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	m.mu.Lock()
	if m.state == StateConnected {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	backend, account, err := m.provider.Connect(ctx)
	if err != nil {
		m.reset()
		return Session{}, fmt.Errorf("connecting wallet: %w", err)
	}

	id, err := m.provider.ChainID(ctx)
	if err != nil {
		m.reset()
		return Session{}, fmt.Errorf("querying network: %w", err)
	}
	if !id.IsInt64() || id.Int64() != m.required {
		m.reset()
		m.log.Warn("network mismatch on connect", "chain_id", id, "required", m.required)
		return Session{}, &NetworkMismatchError{Got: id.Int64(), Want: m.required}
	}

	s := Session{Connected: true, ChainID: m.required, Address: account}

	m.mu.Lock()
	m.state = StateConnected
	m.session = s
	m.backend = backend
	m.mu.Unlock()

	m.log.Debug("connected", "address", account.Hex(), "chain_id", m.required)
	return s, nil
}

// Handle returns a read-only or signing handle. The network id is queried
// again on every call; a mismatch tears the session down.
func (m *Manager) Handle(ctx context.Context, needsSigner bool) (*Handle, error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	backend, account := m.backend, m.session.Address
	m.mu.Unlock()

	id, err := m.provider.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying network: %w", err)
	}
	if !id.IsInt64() || id.Int64() != m.required {
		m.reset()
		m.log.Warn("network changed during session", "chain_id", id, "required", m.required)
		return nil, &NetworkMismatchError{Got: id.Int64(), Want: m.required}
	}

	h := &Handle{Backend: backend, Account: account, ChainID: id}
	if needsSigner {
		opts, err := m.provider.TransactOpts(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("preparing signer: %w", err)
		}
		h.Opts = opts
	}
	return h, nil
}

// Disconnect resets the session and releases the provider connection.
func (m *Manager) Disconnect() {
	m.reset()
	m.log.Debug("disconnected")
}

func (m *Manager) reset() {
	m.mu.Lock()
	m.state = StateDisconnected
	m.session = Session{}
	m.backend = nil
	m.mu.Unlock()

	if c, ok := m.provider.(interface{ Close() }); ok {
		c.Close()
	}
}
