package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/rpc"
	"github.com/Mohsinsiddi/w3ico/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Required network: " + chain.NetworkName(cfg.RequiredChainID)))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetContractCmd = &cobra.Command{
	Use:   "set-contract <address>",
	Short: "Set the ICO contract address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid contract address %q", args[0])
		}
		cfg.ContractAddress = common.HexToAddress(args[0]).Hex()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Contract set to " + ui.Addr(cfg.ContractAddress)))
		return nil
	},
}

var configSetChainIDCmd = &cobra.Command{
	Use:   "set-chain-id <id>",
	Short: "Set the only network sessions may use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid chain id %q", args[0])
		}
		cfg.RequiredChainID = id
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Required network set to " + ui.ChainName(chain.NetworkName(id))))
		if _, ok := chain.LookupNetwork(id); !ok && len(cfg.RPCURLs) == 0 {
			fmt.Println(ui.Hint("No public RPC is known for this chain. Add one with: w3ico config add-rpc <url>"))
		}
		return nil
	},
}

var configSetAlgorithmCmd = &cobra.Command{
	Use:   "set-rpc-algorithm <fastest|failover>",
	Short: "Choose how an RPC endpoint is picked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algo := rpc.ParseAlgorithm(args[0])
		if string(algo) != args[0] {
			return fmt.Errorf("unknown algorithm %q (want fastest or failover)", args[0])
		}
		cfg.RPCAlgorithm = string(algo)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("RPC algorithm set to " + cfg.RPCAlgorithm))
		return nil
	},
}

var configAddRPCCmd = &cobra.Command{
	Use:   "add-rpc <url>",
	Short: "Add an RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.AddRPC(args[0]); err != nil {
			// Already exists; not fatal.
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("RPC added: " + args[0]))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <url>",
	Short: "Remove an RPC endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveRPC(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success("RPC removed: " + args[0]))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetContractCmd, configSetChainIDCmd,
		configSetAlgorithmCmd, configAddRPCCmd, configRemoveRPCCmd)
}
