package cmd

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"tokend/client"
	"tokend/keypair"
)

// KeyFlags is the common private key / node endpoint flag set shared by every
// command that signs requests
type KeyFlags struct {
	PrivateKey     string
	PrivateKeyFile string
	NodeURL        string
	LedgerID       string
}

// loadKeypair loads the signing key from --private-key or --private-key-file
func loadKeypair(flags KeyFlags) (*keypair.Keypair, error) {
	if flags.PrivateKey != "" {
		return keypair.FromHex(flags.PrivateKey)
	}
	if flags.PrivateKeyFile != "" {
		return keypair.FromFile(flags.PrivateKeyFile)
	}
	return nil, fmt.Errorf("either --private-key or --private-key-file is required")
}

func newRPCClient(flags KeyFlags) *client.Client {
	return client.NewClient(client.Config{
		Endpoint: flags.NodeURL,
		LedgerID: flags.LedgerID,
	})
}

// parseAmount parses a decimal amount, allowing _ separators: 1_000_00
func parseAmount(raw string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(normalizeAmount(raw))
	if err != nil {
		return nil, fmt.Errorf("could not parse amount string: %v", err)
	}
	return amount, nil
}

func normalizeAmount(raw string) string {
	return strings.ReplaceAll(raw, "_", "")
}
