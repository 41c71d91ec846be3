package cmd

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"tokend/client"
	"tokend/keypair"
)

type AdminConfig struct {
	KeyFlags
	Amount  string
	Address string
}

var adminConfig AdminConfig

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Owner-gated ledger administration",
	Long: `Administrative operations: supply issuance and burn, the freeze
switch, and owner / fee collector reassignment. Every subcommand must be
signed with the current owner's key; any other key is rejected outright.`,
}

var mintCmd = &cobra.Command{
	Use:   "mint [flags]",
	Short: "Issue new tokens to the owner account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminAmountOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair, value *uint256.Int) (*client.OpInfo, error) {
			return rpc.CreateTokens(ctx, kp, value)
		})
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn [flags]",
	Short: "Destroy tokens from the owner account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminAmountOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair, value *uint256.Int) (*client.OpInfo, error) {
			return rpc.BurnTokens(ctx, kp, value)
		})
	},
}

var freezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Freeze all value-moving operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminPlainOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair) (*client.OpInfo, error) {
			return rpc.FreezeTransfers(ctx, kp)
		})
	},
}

var unfreezeCmd = &cobra.Command{
	Use:   "unfreeze",
	Short: "Re-enable value-moving operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminPlainOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair) (*client.OpInfo, error) {
			return rpc.UnfreezeTransfers(ctx, kp)
		})
	},
}

var setOwnerCmd = &cobra.Command{
	Use:   "set-owner [flags]",
	Short: "Hand ownership to another address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminIdentityOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair, addr string) (*client.OpInfo, error) {
			return rpc.SetOwner(ctx, kp, addr)
		})
	},
}

var setFeeCollectorCmd = &cobra.Command{
	Use:   "set-fee-collector [flags]",
	Short: "Redirect fees to another address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminIdentityOp(adminConfig, func(ctx context.Context, rpc *client.Client, kp *keypair.Keypair, addr string) (*client.OpInfo, error) {
			return rpc.SetFeeCollector(ctx, kp, addr)
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(mintCmd, burnCmd, freezeCmd, unfreezeCmd, setOwnerCmd, setFeeCollectorCmd)

	for _, c := range []*cobra.Command{mintCmd, burnCmd, freezeCmd, unfreezeCmd, setOwnerCmd, setFeeCollectorCmd} {
		c.Flags().StringVarP(&adminConfig.PrivateKeyFile, "private-key-file", "f", "", "owner private key file")
		c.Flags().StringVarP(&adminConfig.PrivateKey, "private-key", "p", "", "owner private key in hex")
		c.Flags().StringVarP(&adminConfig.NodeURL, "node-url", "u", "http://localhost:9800", "token ledger node URL")
		c.Flags().StringVarP(&adminConfig.LedgerID, "ledger-id", "i", "", "ledger instance id")
	}
	mintCmd.Flags().StringVarP(&adminConfig.Amount, "amount", "a", "", "amount in minor units")
	burnCmd.Flags().StringVarP(&adminConfig.Amount, "amount", "a", "", "amount in minor units")
	setOwnerCmd.Flags().StringVarP(&adminConfig.Address, "address", "t", "", "new owner address")
	setFeeCollectorCmd.Flags().StringVarP(&adminConfig.Address, "address", "t", "", "new fee collector address")
}

func adminAmountOp(cfg AdminConfig, op func(context.Context, *client.Client, *keypair.Keypair, *uint256.Int) (*client.OpInfo, error)) error {
	value, err := parseAmount(cfg.Amount)
	if err != nil {
		return err
	}
	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return err
	}
	result, err := op(context.Background(), newRPCClient(cfg.KeyFlags), kp, value)
	if err != nil {
		return err
	}
	if !result.Ok {
		return fmt.Errorf("operation rejected: %s", result.Error)
	}
	fmt.Println("ok")
	return nil
}

func adminPlainOp(cfg AdminConfig, op func(context.Context, *client.Client, *keypair.Keypair) (*client.OpInfo, error)) error {
	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return err
	}
	result, err := op(context.Background(), newRPCClient(cfg.KeyFlags), kp)
	if err != nil {
		return err
	}
	if !result.Ok {
		return fmt.Errorf("operation rejected: %s", result.Error)
	}
	fmt.Println("ok")
	return nil
}

func adminIdentityOp(cfg AdminConfig, op func(context.Context, *client.Client, *keypair.Keypair, string) (*client.OpInfo, error)) error {
	if cfg.Address == "" {
		return fmt.Errorf("--address is required")
	}
	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return err
	}
	result, err := op(context.Background(), newRPCClient(cfg.KeyFlags), kp, cfg.Address)
	if err != nil {
		return err
	}
	if !result.Ok {
		return fmt.Errorf("operation rejected: %s", result.Error)
	}
	fmt.Println("ok")
	return nil
}
