package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/display"
	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/Mohsinsiddi/w3ico/internal/orchestrator"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
)

// App routes user intents to the session, the syncer and the orchestrator,
// and reports every outcome through the notifier.
type App struct {
	session *chain.Manager
	syncer  *statesync.Syncer
	orch    *orchestrator.Orchestrator
	log     *slog.Logger

	mu     sync.Mutex
	notify Notifier
}

// New wires an App. A nil notifier discards notifications.
func New(session *chain.Manager, syncer *statesync.Syncer, orch *orchestrator.Orchestrator, n Notifier) *App {
	if n == nil {
		n = discard
	}
	return &App{
		session: session,
		syncer:  syncer,
		orch:    orch,
		notify:  n,
		log:     logger.Named("app"),
	}
}

var discard = NotifierFunc(func(Notification) {})

// SetNotifier swaps the notifier. A nil notifier discards notifications.
func (a *App) SetNotifier(n Notifier) {
	if n == nil {
		n = discard
	}
	a.mu.Lock()
	a.notify = n
	a.mu.Unlock()
}

func (a *App) notifier() Notifier {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notify
}

// Session returns the current session value.
func (a *App) Session() chain.Session { return a.session.Current() }

// Snapshot returns the last known contract snapshot.
func (a *App) Snapshot() (statesync.Snapshot, bool) { return a.syncer.Snapshot() }

// Pending returns the operation holding the pending slot.
func (a *App) Pending() orchestrator.Op { return a.orch.Pending() }

// Observe forwards orchestrator phase events to fn.
func (a *App) Observe(fn orchestrator.Observer) { a.orch.Observe(fn) }

// ConnectWallet connects and, on the first connection of a session, runs the
// full sync.
func (a *App) ConnectWallet(ctx context.Context) (chain.Session, error) {
	s, err := a.session.Connect(ctx)
	if err != nil {
		a.syncer.Reset()
		return chain.Session{}, a.fail(err)
	}
	if _, ok := a.syncer.Snapshot(); !ok {
		if _, err := a.syncer.FullSync(ctx); err != nil {
			return s, a.fail(err)
		}
	}
	a.notifier().Notify(Notification{
		Level:   LevelInfo,
		Message: fmt.Sprintf("Connected %s on %s", display.TruncateAddress(s.Address.Hex()), chain.NetworkName(s.ChainID)),
	})
	return s, nil
}

// Refresh re-reads the dynamic facts.
func (a *App) Refresh(ctx context.Context) (statesync.Snapshot, error) {
	snap, err := a.syncer.Refresh(ctx)
	if err != nil {
		return snap, a.fail(err)
	}
	return snap, nil
}

// Watch refreshes every interval until ctx is done. Failures are notified
// and also passed to fn.
func (a *App) Watch(ctx context.Context, interval time.Duration, fn func(statesync.Snapshot, error)) {
	a.syncer.Watch(ctx, interval, func(snap statesync.Snapshot, err error) {
		if err != nil {
			err = a.fail(err)
		}
		if fn != nil {
			fn(snap, err)
		}
	})
}

// SubmitMint mints the quantity typed by the user.
func (a *App) SubmitMint(ctx context.Context, quantity string) (orchestrator.Result, error) {
	res, err := a.orch.SubmitMint(ctx, quantity)
	if err != nil {
		return res, a.fail(err)
	}
	a.succeed(res, fmt.Sprintf("Minted %s tokens", strings.TrimSpace(quantity)))
	return res, nil
}

// SubmitClaim claims free tokens for the caller's NFTs.
func (a *App) SubmitClaim(ctx context.Context) (orchestrator.Result, error) {
	before, _ := a.syncer.Snapshot()
	res, err := a.orch.Claim(ctx)
	if err != nil {
		return res, a.fail(err)
	}
	a.succeed(res, fmt.Sprintf("Claimed %s tokens", display.ToUnitAmount(display.ClaimableTokens(before.ClaimableNFTs))))
	return res, nil
}

// SubmitWithdraw sends the contract balance to the owner.
func (a *App) SubmitWithdraw(ctx context.Context) (orchestrator.Result, error) {
	res, err := a.orch.Withdraw(ctx)
	if err != nil {
		return res, a.fail(err)
	}
	a.succeed(res, "Withdrew collected funds")
	return res, nil
}

// Disconnect ends the session and drops the snapshot.
func (a *App) Disconnect() {
	a.session.Disconnect()
	a.syncer.Reset()
}

func (a *App) succeed(res orchestrator.Result, msg string) {
	a.notifier().Notify(Notification{Level: LevelSuccess, Message: msg + " (tx " + res.Hash.Hex() + ")"})
	if res.RefreshErr != nil {
		a.notifier().Notify(Notification{
			Level:   LevelWarn,
			Message: "Transaction confirmed but the refresh failed; balances may be stale.",
			Err:     res.RefreshErr,
		})
	}
}

// fail reports err and drops the snapshot when the session was torn down.
func (a *App) fail(err error) error {
	if errors.Is(err, chain.ErrNetworkMismatch) {
		a.syncer.Reset()
	}
	a.log.Debug("intent failed", "err", err)
	a.notifier().Notify(Notification{Level: LevelError, Message: Describe(err), Err: err})
	return err
}
