package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokend/config"
	"tokend/db"
	"tokend/events"
	"tokend/ledger"
	"tokend/store"
)

// faultyProvider wraps the in-memory provider and fails batch commits on
// demand, standing in for a crash at persistence time.
type faultyProvider struct {
	*db.MemDBProvider
	failWrites bool
}

func (p *faultyProvider) Batch() db.DatabaseBatch {
	return &faultyBatch{DatabaseBatch: p.MemDBProvider.Batch(), provider: p}
}

type faultyBatch struct {
	db.DatabaseBatch
	provider *faultyProvider
}

func (b *faultyBatch) Write() error {
	if b.provider.failWrites {
		return errors.New("injected write failure")
	}
	return b.DatabaseBatch.Write()
}

func newFaultyFixture(t *testing.T, ownerBalance uint64) (*Token, *faultyProvider) {
	t.Helper()

	provider := &faultyProvider{MemDBProvider: db.NewMemDBProvider()}
	accountStore, err := store.NewGenericAccountStore(provider)
	require.NoError(t, err)
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	require.NoError(t, err)
	stateStore, err := store.NewGenericStateStore(provider)
	require.NoError(t, err)

	lgr := ledger.NewLedger(accountStore, allowanceStore, events.NewEventBus())
	genesis := &config.GenesisConfig{
		LedgerID:     testLedgerID,
		Owner:        "owner",
		FeeCollector: "collector",
		Accounts: []config.GenesisAccount{
			{Address: "owner", Amount: uint256.NewInt(ownerBalance)},
		},
	}
	require.NoError(t, Initialize(genesis, lgr, stateStore))
	tok, err := NewToken(testLedgerID, lgr, stateStore, events.NewEventBus())
	require.NoError(t, err)
	return tok, provider
}

// reopen rebuilds the token from what the provider actually persisted
func reopen(t *testing.T, provider *faultyProvider) *Token {
	t.Helper()

	accountStore, err := store.NewGenericAccountStore(provider)
	require.NoError(t, err)
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	require.NoError(t, err)
	stateStore, err := store.NewGenericStateStore(provider)
	require.NoError(t, err)
	lgr := ledger.NewLedger(accountStore, allowanceStore, events.NewEventBus())
	tok, err := NewToken(testLedgerID, lgr, stateStore, events.NewEventBus())
	require.NoError(t, err)
	return tok
}

func TestCreateTokensPersistFailure(t *testing.T) {
	tok, provider := newFaultyFixture(t, 1000)

	provider.failWrites = true
	ok, err := tok.CreateTokens("owner", uint256.NewInt(500))
	require.Error(t, err)
	assert.False(t, ok)

	// The failed commit must not leak into the in-memory view
	assert.Equal(t, uint256.NewInt(1000), tok.TotalSupply())

	// Nothing landed on disk either: balance and supply still agree
	provider.failWrites = false
	reopened := reopen(t, provider)
	assert.Equal(t, uint256.NewInt(1000), reopened.TotalSupply())
	balance, err := reopened.BalanceOf("owner")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000), balance)
}

func TestBurnTokensPersistFailure(t *testing.T) {
	tok, provider := newFaultyFixture(t, 1000)

	provider.failWrites = true
	ok, err := tok.BurnTokens("owner", uint256.NewInt(400))
	require.Error(t, err)
	assert.False(t, ok)

	assert.Equal(t, uint256.NewInt(1000), tok.TotalSupply())

	provider.failWrites = false
	reopened := reopen(t, provider)
	assert.Equal(t, uint256.NewInt(1000), reopened.TotalSupply())
	balance, err := reopened.BalanceOf("owner")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000), balance)
}

func TestMintPersistsBalanceAndSupplyTogether(t *testing.T) {
	tok, provider := newFaultyFixture(t, 1000)

	ok, err := tok.CreateTokens("owner", uint256.NewInt(500))
	require.NoError(t, err)
	require.True(t, ok)

	// A reload sees the same committed pair
	reopened := reopen(t, provider)
	assert.Equal(t, uint256.NewInt(1500), reopened.TotalSupply())
	balance, err := reopened.BalanceOf("owner")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1500), balance)
}
