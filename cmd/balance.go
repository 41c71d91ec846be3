package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tokend/client"
)

type BalanceConfig struct {
	NodeURL string
	Address string
}

var balanceConfig BalanceConfig

// balanceCmd queries an account's balance and delegated transfer nonce
var balanceCmd = &cobra.Command{
	Use:   "balance [flags]",
	Short: "Query an account balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryBalance(balanceConfig)
	},
}

// stateCmd queries the token metadata and administrative state
var stateCmd = &cobra.Command{
	Use:   "state [flags]",
	Short: "Query the token state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryState(balanceConfig)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(stateCmd)

	balanceCmd.PersistentFlags().StringVarP(&balanceConfig.NodeURL, "node-url", "u", "http://localhost:9800", "token ledger node URL")
	balanceCmd.PersistentFlags().StringVarP(&balanceConfig.Address, "address", "t", "", "account address")
	stateCmd.PersistentFlags().StringVarP(&balanceConfig.NodeURL, "node-url", "u", "http://localhost:9800", "token ledger node URL")
}

func queryBalance(cfg BalanceConfig) error {
	rpc := client.NewClient(client.Config{Endpoint: cfg.NodeURL})

	balance, err := rpc.Balance(context.Background(), cfg.Address)
	if err != nil {
		return err
	}
	nonce, err := rpc.Nonce(context.Background(), cfg.Address)
	if err != nil {
		return err
	}

	fmt.Printf("address: %s\nbalance: %s\nnonce:   %d\n", cfg.Address, balance.Dec(), nonce)
	return nil
}

func queryState(cfg BalanceConfig) error {
	rpc := client.NewClient(client.Config{Endpoint: cfg.NodeURL})

	state, err := rpc.State(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("name:          %s (%s)\n", state.Name, state.Symbol)
	fmt.Printf("decimals:      %d\n", state.Decimals)
	fmt.Printf("total supply:  %s\n", state.TotalSupply)
	fmt.Printf("owner:         %s\n", state.Owner)
	fmt.Printf("fee collector: %s\n", state.FeeCollector)
	fmt.Printf("frozen:        %t\n", state.Frozen)
	return nil
}
