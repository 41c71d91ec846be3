package config

import (
	"fmt"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// GenesisAccount is one pre-funded account in the genesis config.
type GenesisAccount struct {
	Address string       `yaml:"address"`
	Amount  *uint256.Int `yaml:"amount"`
}

// UnmarshalYAML parses the amount from its decimal minor-unit form, whether
// it is written as a bare number or a quoted string. A missing amount is zero.
func (a *GenesisAccount) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Address string    `yaml:"address"`
		Amount  yaml.Node `yaml:"amount"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	a.Address = raw.Address
	if raw.Amount.Value == "" {
		a.Amount = uint256.NewInt(0)
		return nil
	}
	amount, err := uint256.FromDecimal(raw.Amount.Value)
	if err != nil {
		return fmt.Errorf("invalid genesis amount %q for %s: %w", raw.Amount.Value, raw.Address, err)
	}
	a.Amount = amount
	return nil
}

// GenesisConfig describes a new ledger instance: its identity, the initial
// owner and fee collector, and any pre-funded accounts.
type GenesisConfig struct {
	// LedgerID is the ledger instance identity baked into every delegated
	// transfer digest, so signatures cannot be replayed across deployments.
	LedgerID     string           `yaml:"ledger_id"`
	Owner        string           `yaml:"owner"`
	FeeCollector string           `yaml:"fee_collector"`
	Accounts     []GenesisAccount `yaml:"accounts"`
}

// GenesisFile is the top-level structure of genesis.yml.
type GenesisFile struct {
	Genesis GenesisConfig `yaml:"genesis"`
}

// ServerConfig is the [server] section of the node .ini config.
type ServerConfig struct {
	ListenAddr string `ini:"listen_addr"`
}

// DBConfig is the [db] section of the node .ini config.
type DBConfig struct {
	// Backend selects the key-value store: "leveldb", "bolt" or "memory".
	Backend   string `ini:"backend"`
	Directory string `ini:"directory"`
}
