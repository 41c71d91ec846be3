package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tokend/token"
)

type DelegatedConfig struct {
	KeyFlags
	To        string
	Amount    string
	Fee       string
	Nonce     uint64
	Relayer   string
	HolderSig string
}

var delegatedConfig DelegatedConfig

var delegatedCmd = &cobra.Command{
	Use:   "delegated",
	Short: "Sign and submit delegated transfers",
	Long: `A delegated transfer lets a holder authorize a transfer off-band and
have a relayer submit it for a tip. "sign" runs on the holder's side and
prints the authorization signature; "submit" runs on the relayer's side.`,
}

// delegatedSignCmd produces the holder's authorization signature. It needs no
// node connection: signing is entirely off-band.
var delegatedSignCmd = &cobra.Command{
	Use:   "sign [flags]",
	Short: "Produce a delegated transfer signature (holder side)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return delegatedSign(delegatedConfig)
	},
}

// delegatedSubmitCmd submits a holder-signed transfer as the relayer
var delegatedSubmitCmd = &cobra.Command{
	Use:   "submit [flags]",
	Short: "Submit a holder-signed delegated transfer (relayer side)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return delegatedSubmit(delegatedConfig)
	},
}

func init() {
	rootCmd.AddCommand(delegatedCmd)
	delegatedCmd.AddCommand(delegatedSignCmd)
	delegatedCmd.AddCommand(delegatedSubmitCmd)

	for _, c := range []*cobra.Command{delegatedSignCmd, delegatedSubmitCmd} {
		c.Flags().StringVarP(&delegatedConfig.PrivateKeyFile, "private-key-file", "f", "", "signing key file")
		c.Flags().StringVarP(&delegatedConfig.PrivateKey, "private-key", "p", "", "signing key in hex")
		c.Flags().StringVarP(&delegatedConfig.LedgerID, "ledger-id", "i", "", "ledger instance id")
		c.Flags().StringVarP(&delegatedConfig.To, "to", "t", "", "address of recipient")
		c.Flags().StringVarP(&delegatedConfig.Amount, "amount", "a", "", "amount in minor units")
		c.Flags().StringVar(&delegatedConfig.Fee, "tip", "0", "relayer tip in minor units")
		c.Flags().Uint64VarP(&delegatedConfig.Nonce, "nonce", "n", 0, "holder's next delegated transfer nonce")
	}
	delegatedSignCmd.Flags().StringVarP(&delegatedConfig.Relayer, "relayer", "r", "", "address of the relayer that will submit")
	delegatedSubmitCmd.Flags().StringVarP(&delegatedConfig.NodeURL, "node-url", "u", "http://localhost:9800", "token ledger node URL")
	delegatedSubmitCmd.Flags().StringVarP(&delegatedConfig.HolderSig, "holder-sig", "s", "", "holder's authorization signature")
}

func delegatedSign(cfg DelegatedConfig) error {
	value, err := parseAmount(cfg.Amount)
	if err != nil {
		return err
	}
	tip, err := parseAmount(cfg.Fee)
	if err != nil {
		return err
	}
	if cfg.Relayer == "" {
		return fmt.Errorf("--relayer is required: the signature only works for that exact submitter")
	}

	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return fmt.Errorf("failed to load holder private key: %w", err)
	}

	digest := token.DelegatedDigest(cfg.LedgerID, cfg.Relayer, cfg.To, value, tip, cfg.Nonce)
	sig := kp.Sign(digest)

	fmt.Printf("holder:    %s\nrelayer:   %s\nnonce:     %d\nsignature: %s\n", kp.Address, cfg.Relayer, cfg.Nonce, sig)
	return nil
}

func delegatedSubmit(cfg DelegatedConfig) error {
	value, err := parseAmount(cfg.Amount)
	if err != nil {
		return err
	}
	tip, err := parseAmount(cfg.Fee)
	if err != nil {
		return err
	}
	if cfg.HolderSig == "" {
		return fmt.Errorf("--holder-sig is required")
	}

	kp, err := loadKeypair(cfg.KeyFlags)
	if err != nil {
		return fmt.Errorf("failed to load relayer private key: %w", err)
	}

	rpc := newRPCClient(cfg.KeyFlags)
	result, err := rpc.SubmitDelegated(context.Background(), kp, cfg.To, value, tip, cfg.Nonce, cfg.HolderSig)
	if err != nil {
		return err
	}
	if !result.Ok {
		return fmt.Errorf("delegated transfer rejected: %s", result.Error)
	}

	fmt.Printf("Delegated transfer accepted: %s to %s, tip %s to relayer %s\n", value.Dec(), cfg.To, tip.Dec(), kp.Address)
	return nil
}
