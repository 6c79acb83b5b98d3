package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Mohsinsiddi/w3ico/internal/app"
	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/config"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/orchestrator"
	"github.com/Mohsinsiddi/w3ico/internal/rpc"
	"github.com/Mohsinsiddi/w3ico/internal/statesync"
	"github.com/Mohsinsiddi/w3ico/internal/ui"
	"github.com/Mohsinsiddi/w3ico/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// reportedError marks an error the notifier has already shown, so Execute
// only sets the exit code.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// prompt is shared so one buffered reader owns stdin.
var prompt = ui.StdPrompter()

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())))
}

// resolveWallet picks --wallet, then the configured default, then the
// manager's own default.
func resolveWallet(mgr *wallet.Manager) (*wallet.Wallet, error) {
	name := walletFlag
	if name == "" {
		name = cfg.DefaultWallet
	}
	w, err := mgr.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w\n  Add one with: w3ico wallet add <name> --key <private-key>", err)
	}
	return w, nil
}

// rpcURLs returns the configured endpoints, falling back to the public ones
// known for the required network.
func rpcURLs(c *config.Config) ([]string, error) {
	if len(c.RPCURLs) > 0 {
		return c.RPCURLs, nil
	}
	if n, ok := chain.LookupNetwork(c.RequiredChainID); ok && len(n.RPCs) > 0 {
		return n.RPCs, nil
	}
	return nil, fmt.Errorf("no RPC configured for %s\n  Add one with: w3ico config add-rpc <url>",
		chain.NetworkName(c.RequiredChainID))
}

func contractAddress(c *config.Config) (common.Address, error) {
	if !common.IsHexAddress(c.ContractAddress) {
		return common.Address{}, fmt.Errorf("no valid contract address configured (%q)\n  Set one with: w3ico config set-contract <address>",
			c.ContractAddress)
	}
	return common.HexToAddress(c.ContractAddress), nil
}

// printNotifier renders notifications on w.
func printNotifier(w io.Writer) app.Notifier {
	return app.NotifierFunc(func(n app.Notification) {
		switch n.Level {
		case app.LevelSuccess:
			fmt.Fprintln(w, ui.Success(n.Message))
		case app.LevelWarn:
			fmt.Fprintln(w, ui.Warn(n.Message))
		case app.LevelError:
			fmt.Fprintln(w, ui.Err(n.Message))
		default:
			fmt.Fprintln(w, ui.Info(n.Message))
		}
	})
}

// openApp wires the whole stack for the selected wallet and connects it.
// The returned App must be closed with Disconnect.
func openApp(ctx context.Context) (*app.App, error) {
	mgr := newWalletManager()
	w, err := resolveWallet(mgr)
	if err != nil {
		return nil, err
	}
	urls, err := rpcURLs(cfg)
	if err != nil {
		return nil, err
	}
	addr, err := contractAddress(cfg)
	if err != nil {
		return nil, err
	}

	signer := wallet.NewSigner(w, mgr.Keys(), prompt.ApproveTx)
	provider := chain.NewRPCProvider(urls, rpc.ParseAlgorithm(cfg.RPCAlgorithm), signer)
	session := chain.NewManager(provider, cfg.RequiredChainID)
	gateway := contract.NewGateway(addr)
	syncer := statesync.New(session, gateway)
	orch := orchestrator.New(session, gateway, syncer)
	a := app.New(session, syncer, orch, printNotifier(os.Stdout))

	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	if _, err := a.ConnectWallet(selectCtx); err != nil {
		return nil, reported(err)
	}
	return a, nil
}

// followPhases shows a spinner while a transaction waits for its receipt.
// The spinner is only started after signing so it never draws over the
// approval prompt.
func followPhases(a *app.App, w io.Writer) func() {
	var sp *ui.Spinner
	stop := func() {
		if sp != nil {
			sp.Stop()
			sp = nil
		}
	}
	a.Observe(func(e orchestrator.Event) {
		switch e.Phase {
		case orchestrator.PhaseSubmitting:
			fmt.Fprintln(w, ui.Meta(fmt.Sprintf("Preparing %s...", e.Op)))
		case orchestrator.PhaseAwaitingConfirmation:
			stop()
			sp = ui.NewSpinner(w, fmt.Sprintf("Waiting for %s to confirm", ui.Addr(e.Hash.Hex())))
			sp.Start()
		default:
			stop()
		}
	})
	return stop
}
