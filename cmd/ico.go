package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/Mohsinsiddi/w3ico/internal/app"
	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/display"
	"github.com/Mohsinsiddi/w3ico/internal/orchestrator"
	"github.com/Mohsinsiddi/w3ico/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sale and your account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			snap, _ := a.Snapshot()
			fmt.Println(ui.Banner(Version))
			fmt.Println(ui.SnapshotBlock(a.Session(), snap))
			printNextSteps(snap.CallerOwnsClaimableNFTs, snap.CallerIsOwner)
			return nil
		})
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint <quantity>",
	Short: "Buy tokens at the contract price",
	Long: `Mint whole tokens. The transaction pays price x quantity in ether,
where price is read from the contract when the session starts.

Examples:
  w3ico mint 10
  w3ico mint 1 --wallet alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate before touching the network.
		req, err := orchestrator.ParseMintRequest(args[0])
		if err != nil {
			return errors.New(app.Describe(err))
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			snap, _ := a.Snapshot()
			cost := new(big.Int)
			if snap.Price != nil {
				cost.Mul(snap.Price, req.Quantity)
			}
			fmt.Println(ui.Meta(fmt.Sprintf("Minting %s tokens for %s ETH", req.Quantity, display.ToUnitAmount(cost))))
			return runTx(a, func() (orchestrator.Result, error) {
				return a.SubmitMint(ctx, args[0])
			})
		})
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim free tokens for the NFTs you hold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return runTx(a, func() (orchestrator.Result, error) {
				return a.SubmitClaim(ctx)
			})
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Send the collected ether to the contract owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			// Non-owners fall through to the orchestrator's guard.
			snap, _ := a.Snapshot()
			if snap.CallerIsOwner && !prompt.ConfirmDanger("Withdraw all collected funds to the owner?") {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			return runTx(a, func() (orchestrator.Result, error) {
				return a.SubmitWithdraw(ctx)
			})
		})
	},
}

// withApp connects the selected wallet, runs fn and disconnects. Ctrl-C
// cancels the context.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Disconnect()
	return fn(ctx, a)
}

// runTx submits one transaction and prints where to look it up.
func runTx(a *app.App, submit func() (orchestrator.Result, error)) error {
	stop := followPhases(a, os.Stdout)
	res, err := submit()
	stop()
	if err != nil {
		return reported(err)
	}
	if n, ok := chain.LookupNetwork(a.Session().ChainID); ok && n.Explorer != "" {
		fmt.Println(ui.Meta("  " + n.TxURL(res.Hash)))
	}
	fmt.Println(ui.SnapshotBlock(a.Session(), res.Snapshot))
	return nil
}

func printNextSteps(canClaim, isOwner bool) {
	fmt.Println(ui.Hint("Buy tokens with: w3ico mint <quantity>"))
	if canClaim {
		fmt.Println(ui.Hint("You have NFTs eligible for free tokens: w3ico claim"))
	}
	if isOwner {
		fmt.Println(ui.Hint("Collect the sale proceeds with: w3ico withdraw"))
	}
}
