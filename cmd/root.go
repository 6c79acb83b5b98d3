package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/w3ico/internal/config"
	"github.com/Mohsinsiddi/w3ico/internal/logger"
	"github.com/Mohsinsiddi/w3ico/internal/ui"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3ico/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir     string
	cfg        *config.Config
	verbose    bool
	walletFlag string
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3ico",
	Short: "Terminal client for an ICO token sale",
	Long: `w3ico talks to a deployed ICO token contract.

  Connect a wallet, check what is left in the sale, mint tokens at the
  contract price, claim free tokens for the NFTs you hold and, as the
  contract owner, withdraw the collected ether.

The contract lives on a single network (Rinkeby by default). Every command
refuses to run against any other chain. Change it with:
  w3ico config set-chain-id <id>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger.Initialize(level)

		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		}
		os.Exit(1)
	}
}

func init() {
	// W3ICO_CONFIG_DIR env var overrides the --config default.
	if envDir := os.Getenv("W3ICO_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3ico)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet to use (default: the configured default wallet)")

	rootCmd.AddCommand(
		statusCmd,
		mintCmd,
		claimCmd,
		withdrawCmd,
		watchCmd,
		walletCmd,
		configCmd,
	)
}
