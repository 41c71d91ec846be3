package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tokend/config"
	"tokend/errors"
	"tokend/events"
	"tokend/exception"
	"tokend/jsonrpc"
	"tokend/ledger"
	"tokend/logx"
	"tokend/monitoring"
	"tokend/ratelimit"
	"tokend/store"
	"tokend/token"
)

type NodeConfig struct {
	ConfigFile  string
	GenesisFile string
}

var nodeConfig NodeConfig

// nodeCmd runs the token ledger node
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a token ledger node",
	Long: `Starts the token ledger service: opens (or initializes) the ledger
database described by the genesis file and serves the JSON-RPC API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode(nodeConfig)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)

	nodeCmd.PersistentFlags().StringVarP(&nodeConfig.ConfigFile, "config", "c", "config/tokend.ini", "node config file (.ini)")
	nodeCmd.PersistentFlags().StringVarP(&nodeConfig.GenesisFile, "genesis", "g", "config/genesis.yml", "genesis config file (.yml)")
}

func runNode(nodeConfig NodeConfig) error {
	serverCfg, err := config.LoadServerConfig(nodeConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("could not load server config: %w", err)
	}
	dbCfg, err := config.LoadDBConfig(nodeConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("could not load db config: %w", err)
	}
	genesis, err := config.LoadGenesisConfig(nodeConfig.GenesisFile)
	if err != nil {
		return err
	}

	provider, err := store.NewProvider(dbCfg)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	accountStore, err := store.NewGenericAccountStore(provider)
	if err != nil {
		return err
	}
	defer accountStore.MustClose()
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	if err != nil {
		return err
	}
	stateStore, err := store.NewGenericStateStore(provider)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	lgr := ledger.NewLedger(accountStore, allowanceStore, eventBus)

	// First run against an empty database writes the genesis state
	tok, err := token.NewToken(genesis.LedgerID, lgr, stateStore, eventBus)
	if err == token.ErrNotInitialized {
		if err := token.Initialize(genesis, lgr, stateStore); err != nil {
			return err
		}
		tok, err = token.NewToken(genesis.LedgerID, lgr, stateStore, eventBus)
	}
	if err != nil {
		return err
	}

	monitoring.InitMetrics()

	// Mirror ledger notifications into the node log
	subID, eventCh := eventBus.Subscribe()
	defer eventBus.Unsubscribe(subID)
	exception.SafeGo("event-logger", func() {
		for event := range eventCh {
			logx.Info("NODE", fmt.Sprintf("Event %s at %s", event.Type(), event.Timestamp().Format(time.RFC3339)))
		}
	})

	limiter := ratelimit.NewLimiter(nil)
	defer limiter.Stop()
	server := jsonrpc.NewServer(tok, genesis.LedgerID, limiter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(serverCfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return errors.NewLedgerError(errors.ErrCodeInternal, err.Error())
		}
		return nil
	case sig := <-sigCh:
		logx.Warn("NODE", fmt.Sprintf("Received signal %s, shutting down", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
