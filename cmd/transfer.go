package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tokend/logx"
)

type TransferConfig struct {
	KeyFlags
	To      string
	Amount  string
	Verbose bool
}

var transferConfig TransferConfig

// transferCmd represents the transfer command
var transferCmd = &cobra.Command{
	Use:   "transfer [flags]",
	Short: "Transfer tokens to another account",
	Long: `Sends tokens from the key's account to the specified recipient.
The fixed transfer fee is charged on top of the amount and routed to the
fee collector.

Examples:
  # Transfer 1000.00 tokens using a private key file
  tokend transfer -t 2NEpo7TZR... -a 1_000_00 -f /path/to/key.txt -i <ledger-id>

  # Transfer 5.00 tokens using the key directly
  tokend transfer -t 2NEpo7TZR... -a 500 -p "hex-private-key" -i <ledger-id>`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := transferToken(transferConfig); err != nil {
			logx.Error("TRANSFER CLI", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(transferCmd)

	transferCmd.PersistentFlags().StringVarP(&transferConfig.PrivateKeyFile, "private-key-file", "f", "", "sender private key file")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.PrivateKey, "private-key", "p", "", "sender private key in hex")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.NodeURL, "node-url", "u", "http://localhost:9800", "token ledger node URL")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.LedgerID, "ledger-id", "i", "", "ledger instance id")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.To, "to", "t", "", "address of recipient")
	transferCmd.PersistentFlags().StringVarP(&transferConfig.Amount, "amount", "a", "", "amount in minor units")
	transferCmd.PersistentFlags().BoolVarP(&transferConfig.Verbose, "verbose", "v", false, "verbose output")
}

func transferToken(cfg TransferConfig) error {
	amount, err := parseAmount(cfg.Amount)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		logx.Debug("TRANSFER CLI", "Loading sender private key...")
	}
	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return fmt.Errorf("failed to load sender private key: %w", err)
	}

	rpc := newRPCClient(cfg.KeyFlags)
	result, err := rpc.Transfer(context.Background(), kp, cfg.To, amount)
	if err != nil {
		return err
	}
	if !result.Ok {
		return fmt.Errorf("transfer rejected: %s", result.Error)
	}

	fmt.Printf("Transferred %s from %s to %s (plus fee)\n", amount.Dec(), kp.Address, cfg.To)
	return nil
}
