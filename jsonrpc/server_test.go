package jsonrpc

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokend/config"
	"tokend/db"
	"tokend/events"
	"tokend/keypair"
	"tokend/ledger"
	"tokend/store"
	"tokend/token"
)

const testLedgerID = "test-ledger"

type serverFixture struct {
	server *Server
	token  *token.Token
	sender *keypair.Keypair
}

// newServerFixture builds a server over an in-memory ledger with one funded
// signing account.
func newServerFixture(t *testing.T, balance uint64) *serverFixture {
	t.Helper()

	sender, err := keypair.Generate()
	require.NoError(t, err)

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
		Accounts: []config.GenesisAccount{
			{Address: sender.Address, Amount: uint256.NewInt(balance)},
		},
	}
	require.NoError(t, token.Initialize(genesis, lgr, stateStore))
	tok, err := token.NewToken(testLedgerID, lgr, stateStore, eventBus)
	require.NoError(t, err)

	return &serverFixture{
		server: NewServer(tok, testLedgerID, nil),
		token:  tok,
		sender: sender,
	}
}

// signedTransfer builds a transfer envelope signed at the given timestamp
func (sf *serverFixture) signedTransfer(to, value string, timestamp uint64) transferParams {
	digest := RequestDigest(MethodTokenTransfer, testLedgerID, to, value, FormatNonce(timestamp))
	return transferParams{
		To:        to,
		Value:     value,
		Timestamp: timestamp,
		Signature: sf.sender.Sign(digest),
	}
}

func (sf *serverFixture) balance(t *testing.T, addr string) *uint256.Int {
	t.Helper()
	balance, err := sf.token.BalanceOf(addr)
	require.NoError(t, err)
	return balance
}

func TestTransferEnvelope(t *testing.T) {
	sf := newServerFixture(t, 10_000)
	p := sf.signedTransfer("bob", "1000", uint64(time.Now().Unix()))

	res, err := sf.server.handleTransfer(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.Equal(t, sf.sender.Address, res.Caller)

	// 10000 - 1000 value - 500 fee
	assert.Equal(t, uint256.NewInt(8500), sf.balance(t, sf.sender.Address))
	assert.Equal(t, uint256.NewInt(1000), sf.balance(t, "bob"))
}

func TestTransferEnvelopeResubmitted(t *testing.T) {
	sf := newServerFixture(t, 10_000)
	p := sf.signedTransfer("bob", "1500", uint64(time.Now().Unix()))

	res, err := sf.server.handleTransfer(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.Ok)
	require.Equal(t, uint256.NewInt(8000), sf.balance(t, sf.sender.Address))

	// The identical envelope must not move value a second time
	_, err = sf.server.handleTransfer(context.Background(), p)
	require.Error(t, err)

	assert.Equal(t, uint256.NewInt(8000), sf.balance(t, sf.sender.Address))
	assert.Equal(t, uint256.NewInt(1500), sf.balance(t, "bob"))
}

func TestTransferEnvelopeStaleTimestamp(t *testing.T) {
	sf := newServerFixture(t, 10_000)

	// Signed an hour ago: validly signed, but far outside the window
	p := sf.signedTransfer("bob", "1000", uint64(time.Now().Add(-time.Hour).Unix()))
	_, err := sf.server.handleTransfer(context.Background(), p)
	require.Error(t, err)

	// Same for an envelope postdated by an hour
	p = sf.signedTransfer("bob", "1000", uint64(time.Now().Add(time.Hour).Unix()))
	_, err = sf.server.handleTransfer(context.Background(), p)
	require.Error(t, err)

	assert.Equal(t, uint256.NewInt(10_000), sf.balance(t, sf.sender.Address))
	assert.True(t, sf.balance(t, "bob").IsZero())
}

func TestTransferEnvelopeReplayCacheSweep(t *testing.T) {
	sf := newServerFixture(t, 10_000)
	p := sf.signedTransfer("bob", "1000", uint64(time.Now().Unix()))

	res, err := sf.server.handleTransfer(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.Ok)

	// Force the cached entry to expire; a fresh envelope still goes through
	// and the cache does not grow without bound.
	sf.server.seenMu.Lock()
	sf.server.seen[p.Signature] = time.Now().Add(-time.Second)
	sf.server.seenMu.Unlock()

	next := sf.signedTransfer("carol", "1000", uint64(time.Now().Unix()))
	res, err = sf.server.handleTransfer(context.Background(), next)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	sf.server.seenMu.Lock()
	_, stillCached := sf.server.seen[p.Signature]
	sf.server.seenMu.Unlock()
	assert.False(t, stillCached)
}
