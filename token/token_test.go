package token

import (
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

const testLedgerID = "test-ledger"

type fixture struct {
	token    *Token
	ledger   *ledger.Ledger
	eventBus *events.EventBus
}

// newFixture builds a token over an in-memory db with the given pre-funded
// accounts. "owner" and "collector" are the owner and fee collector.
func newFixture(t *testing.T, balances map[string]uint64) *fixture {
	t.Helper()

	provider := db.NewMemDBProvider()
	accountStore, err := store.NewGenericAccountStore(provider)
	require.NoError(t, err)
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	require.NoError(t, err)
	stateStore, err := store.NewGenericStateStore(provider)
	require.NoError(t, err)

	eventBus := events.NewEventBus()
	lgr := ledger.NewLedger(accountStore, allowanceStore, eventBus)

	genesis := &config.GenesisConfig{
		LedgerID:     testLedgerID,
		Owner:        "owner",
		FeeCollector: "collector",
	}
	for addr, amount := range balances {
		genesis.Accounts = append(genesis.Accounts, config.GenesisAccount{
			Address: addr,
			Amount:  uint256.NewInt(amount),
		})
	}

	require.NoError(t, Initialize(genesis, lgr, stateStore))
	tok, err := NewToken(testLedgerID, lgr, stateStore, eventBus)
	require.NoError(t, err)

	return &fixture{token: tok, ledger: lgr, eventBus: eventBus}
}

func (f *fixture) balance(t *testing.T, addr string) *uint256.Int {
	t.Helper()
	balance, err := f.token.BalanceOf(addr)
	require.NoError(t, err)
	return balance
}

func TestMetadata(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, config.TokenName, f.token.Name())
	assert.Equal(t, config.TokenSymbol, f.token.Symbol())
	assert.Equal(t, uint8(2), f.token.Decimals())
	assert.Equal(t, "owner", f.token.Owner())
	assert.Equal(t, "collector", f.token.FeeCollector())
	assert.False(t, f.token.Frozen())
}

func TestInitializeTwice(t *testing.T) {
	provider := db.NewMemDBProvider()
	accountStore, err := store.NewGenericAccountStore(provider)
	require.NoError(t, err)
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	require.NoError(t, err)
	stateStore, err := store.NewGenericStateStore(provider)
	require.NoError(t, err)
	lgr := ledger.NewLedger(accountStore, allowanceStore, events.NewEventBus())

	genesis := &config.GenesisConfig{LedgerID: testLedgerID, Owner: "owner", FeeCollector: "collector"}
	require.NoError(t, Initialize(genesis, lgr, stateStore))
	assert.ErrorIs(t, Initialize(genesis, lgr, stateStore), ErrAlreadyInitialized)
}

// Transfer of 400 from a 1000 balance: 400 <= 1000 and 500 <= 600, so the
// transfer succeeds and the sender ends with exactly 100.
func TestTransferChargesFee(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 1000})
	supplyBefore := f.token.TotalSupply()

	ok, err := f.token.Transfer("alice", "bob", uint256.NewInt(400))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint256.NewInt(100), f.balance(t, "alice"))
	assert.Equal(t, uint256.NewInt(400), f.balance(t, "bob"))
	assert.Equal(t, uint256.NewInt(500), f.balance(t, "collector"))
	assert.Equal(t, supplyBefore, f.token.TotalSupply())
}

// Transfer of 600 from a 1000 balance: the remaining 400 cannot cover the
// 500 fee, so nothing moves.
func TestTransferFeeNotCovered(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 1000})

	ok, err := f.token.Transfer("alice", "bob", uint256.NewInt(600))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, uint256.NewInt(1000), f.balance(t, "alice"))
	assert.True(t, f.balance(t, "bob").IsZero())
	assert.True(t, f.balance(t, "collector").IsZero())
}

func TestTransferInsufficientValue(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 1000})

	ok, err := f.token.Transfer("alice", "bob", uint256.NewInt(1001))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(1000), f.balance(t, "alice"))
}

// A zero-value transfer is legitimate and still pays the fee
func TestTransferZeroValue(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 1000})

	ok, err := f.token.Transfer("alice", "bob", uint256.NewInt(0))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint256.NewInt(500), f.balance(t, "alice"))
	assert.True(t, f.balance(t, "bob").IsZero())
	assert.Equal(t, uint256.NewInt(500), f.balance(t, "collector"))
}

func TestTransferFrom(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 2000})

	ok, err := f.token.Approve("alice", "carol", uint256.NewInt(600))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.token.TransferFrom("carol", "alice", "bob", uint256.NewInt(600))
	require.NoError(t, err)
	assert.True(t, ok)

	// Fee is charged to the source on top of the value and does not consume
	// allowance
	assert.Equal(t, uint256.NewInt(900), f.balance(t, "alice"))
	assert.Equal(t, uint256.NewInt(600), f.balance(t, "bob"))
	assert.Equal(t, uint256.NewInt(500), f.balance(t, "collector"))

	remaining, err := f.token.AllowanceOf("alice", "carol")
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
}

func TestTransferFromAllowanceShort(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 2000})

	ok, err := f.token.Approve("alice", "carol", uint256.NewInt(100))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.token.TransferFrom("carol", "alice", "bob", uint256.NewInt(200))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, uint256.NewInt(2000), f.balance(t, "alice"))
	remaining, err := f.token.AllowanceOf("alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), remaining)
}

func TestTransferFromSourceCannotCoverFee(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 700})

	ok, err := f.token.Approve("alice", "carol", uint256.NewInt(700))
	require.NoError(t, err)
	require.True(t, ok)

	// 700 covers the value but leaves nothing for the 500 fee
	ok, err = f.token.TransferFrom("carol", "alice", "bob", uint256.NewInt(700))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(700), f.balance(t, "alice"))
}

func TestCreateTokens(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	ok, err := f.token.CreateTokens("owner", uint256.NewInt(500))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint256.NewInt(1500), f.balance(t, "owner"))
	assert.Equal(t, uint256.NewInt(1500), f.token.TotalSupply())
}

func TestCreateTokensZeroValue(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	ok, err := f.token.CreateTokens("owner", uint256.NewInt(0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(1000), f.token.TotalSupply())
}

func TestCreateTokensNotOwner(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	_, err := f.token.CreateTokens("mallory", uint256.NewInt(500))
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, uint256.NewInt(1000), f.token.TotalSupply())
}

func TestCreateTokensSupplyCap(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	headroom, err := ledger.SafeSub(config.MaxTokensCount(), f.token.TotalSupply())
	require.NoError(t, err)

	// One past the cap fails softly
	ok, err := f.token.CreateTokens("owner", new(uint256.Int).AddUint64(headroom, 1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(1000), f.token.TotalSupply())

	// Exactly the cap succeeds and pins the supply at the maximum
	ok, err = f.token.CreateTokens("owner", headroom)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, config.MaxTokensCount(), f.token.TotalSupply())
}

func TestBurnTokens(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	ok, err := f.token.BurnTokens("owner", uint256.NewInt(400))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint256.NewInt(600), f.balance(t, "owner"))
	assert.Equal(t, uint256.NewInt(600), f.token.TotalSupply())
}

func TestBurnTokensInsufficientBalance(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	ok, err := f.token.BurnTokens("owner", uint256.NewInt(1001))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(1000), f.token.TotalSupply())
}

func TestBurnTokensNotOwner(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000})

	_, err := f.token.BurnTokens("mallory", uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestFreezeGating(t *testing.T) {
	f := newFixture(t, map[string]uint64{"owner": 1000, "alice": 1000})

	ok, err := f.token.FreezeTransfers("owner")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, f.token.Frozen())

	// Value movement refuses softly with no state change
	ok, err = f.token.Transfer("alice", "bob", uint256.NewInt(100))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(1000), f.balance(t, "alice"))

	ok, err = f.token.TransferFrom("carol", "alice", "bob", uint256.NewInt(100))
	require.NoError(t, err)
	assert.False(t, ok)

	// Administrative operations stay available while frozen
	ok, err = f.token.CreateTokens("owner", uint256.NewInt(100))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.token.UnfreezeTransfers("owner")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, f.token.Frozen())

	ok, err = f.token.Transfer("alice", "bob", uint256.NewInt(100))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFreezeIdempotent(t *testing.T) {
	f := newFixture(t, nil)

	_, eventCh := f.eventBus.Subscribe()

	ok, err := f.token.FreezeTransfers("owner")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TransfersFrozen", string((<-eventCh).Type()))

	// Freezing again is a no-op with no notification
	ok, err = f.token.FreezeTransfers("owner")
	require.NoError(t, err)
	assert.True(t, ok)
	select {
	case event := <-eventCh:
		t.Errorf("unexpected event %s", event.Type())
	default:
	}
}

func TestFreezeNotOwner(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.token.FreezeTransfers("mallory")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, f.token.Frozen())
}

func TestSetOwner(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.token.SetOwner("mallory", "mallory")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, "owner", f.token.Owner())

	ok, err := f.token.SetOwner("owner", "successor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "successor", f.token.Owner())

	// Ownership moved: the old owner is just another account now
	_, err = f.token.FreezeTransfers("owner")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSetFeeCollector(t *testing.T) {
	f := newFixture(t, map[string]uint64{"alice": 1000})

	ok, err := f.token.SetFeeCollector("owner", "treasury")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "treasury", f.token.FeeCollector())

	ok, err = f.token.Transfer("alice", "bob", uint256.NewInt(100))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(500), f.balance(t, "treasury"))
}
