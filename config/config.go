package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"tokend/logx"
)

// LoadGenesisConfig reads and parses the genesis.yml file
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open genesis config: %w", err)
	}
	defer file.Close()

	var genesisFile GenesisFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&genesisFile); err != nil {
		return nil, fmt.Errorf("could not decode genesis config: %w", err)
	}

	cfg := genesisFile.Genesis
	if cfg.LedgerID == "" {
		return nil, fmt.Errorf("genesis config is missing ledger_id")
	}
	if cfg.Owner == "" {
		return nil, fmt.Errorf("genesis config is missing owner")
	}
	if cfg.FeeCollector == "" {
		return nil, fmt.Errorf("genesis config is missing fee_collector")
	}

	logx.Info("CONFIG", fmt.Sprintf("Loaded genesis config: ledger_id=%s, owner=%s, accounts=%d", cfg.LedgerID, cfg.Owner, len(cfg.Accounts)))
	return &cfg, nil
}

// LoadServerConfig reads the [server] section from an .ini file
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	serverSection := cfg.Section("server")
	serverCfg := &ServerConfig{ListenAddr: "localhost:9800"}
	err = serverSection.MapTo(serverCfg)
	if err != nil {
		return nil, err
	}
	return serverCfg, nil
}

// LoadDBConfig reads the [db] section from an .ini file
func LoadDBConfig(path string) (*DBConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	dbSection := cfg.Section("db")
	dbCfg := &DBConfig{Backend: "leveldb", Directory: "./data"}
	err = dbSection.MapTo(dbCfg)
	if err != nil {
		return nil, err
	}
	return dbCfg, nil
}
