package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tokend/keypair"
	"tokend/logx"
)

type InitConfig struct {
	OutDir        string
	InitialAmount string
	ListenAddr    string
	DBBackend     string
}

var initConfig InitConfig

// initCmd generates a fresh deployment: owner and fee collector keys, the
// genesis file and a node config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate keys and config for a new ledger",
	Long: `Generates an owner keypair and a fee collector keypair, then writes
genesis.yml and tokend.ini into the output directory. The owner account is
pre-funded with the initial amount.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(initConfig)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.PersistentFlags().StringVarP(&initConfig.OutDir, "out", "o", "config", "output directory")
	initCmd.PersistentFlags().StringVarP(&initConfig.InitialAmount, "initial-amount", "a", "1_000_000_00", "owner's genesis balance in minor units")
	initCmd.PersistentFlags().StringVarP(&initConfig.ListenAddr, "listen", "l", "localhost:9800", "RPC listen address")
	initCmd.PersistentFlags().StringVarP(&initConfig.DBBackend, "db", "d", "leveldb", "db backend: leveldb, bolt or memory")
}

func runInit(cfg InitConfig) error {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	owner, err := keypair.Generate()
	if err != nil {
		return err
	}
	collector, err := keypair.Generate()
	if err != nil {
		return err
	}

	if err := writeKeyFile(filepath.Join(cfg.OutDir, "owner.key"), owner); err != nil {
		return err
	}
	if err := writeKeyFile(filepath.Join(cfg.OutDir, "fee_collector.key"), collector); err != nil {
		return err
	}

	ledgerID := uuid.Must(uuid.NewV7()).String()
	amount := normalizeAmount(cfg.InitialAmount)

	genesis := fmt.Sprintf(`genesis:
  ledger_id: %s
  owner: %s
  fee_collector: %s
  accounts:
    - address: %s
      amount: %s
`, ledgerID, owner.Address, collector.Address, owner.Address, amount)
	if err := os.WriteFile(filepath.Join(cfg.OutDir, "genesis.yml"), []byte(genesis), 0o644); err != nil {
		return fmt.Errorf("could not write genesis.yml: %w", err)
	}

	nodeIni := fmt.Sprintf(`[server]
listen_addr = %s

[db]
backend = %s
directory = ./data
`, cfg.ListenAddr, cfg.DBBackend)
	if err := os.WriteFile(filepath.Join(cfg.OutDir, "tokend.ini"), []byte(nodeIni), 0o644); err != nil {
		return fmt.Errorf("could not write tokend.ini: %w", err)
	}

	logx.Info("INIT", fmt.Sprintf("New ledger %s: owner=%s, fee_collector=%s", ledgerID, owner.Address, collector.Address))
	fmt.Printf("ledger_id:     %s\n", ledgerID)
	fmt.Printf("owner:         %s\n", owner.Address)
	fmt.Printf("fee collector: %s\n", collector.Address)
	return nil
}

func writeKeyFile(path string, kp *keypair.Keypair) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing key file %s", path)
	}
	if err := os.WriteFile(path, []byte(kp.HexKey()+"\n"), 0o600); err != nil {
		return fmt.Errorf("could not write key file %s: %w", path, err)
	}
	return nil
}
