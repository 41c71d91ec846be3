package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokend/db"
	"tokend/events"
	"tokend/store"
)

func newTestLedger(t *testing.T) (*Ledger, *events.EventBus) {
	t.Helper()

	provider := db.NewMemDBProvider()
	accountStore, err := store.NewGenericAccountStore(provider)
	require.NoError(t, err)
	allowanceStore, err := store.NewGenericAllowanceStore(provider)
	require.NoError(t, err)

	eventBus := events.NewEventBus()
	return NewLedger(accountStore, allowanceStore, eventBus), eventBus
}

func mustBalance(t *testing.T, l *Ledger, addr string) *uint256.Int {
	t.Helper()
	balance, err := l.BalanceOf(addr)
	require.NoError(t, err)
	return balance
}

func TestBaseTransfer(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(1000))
	require.NoError(t, err)

	ok, err := l.BaseTransfer("alice", "bob", uint256.NewInt(400))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(600), mustBalance(t, l, "alice"))
	assert.Equal(t, uint256.NewInt(400), mustBalance(t, l, "bob"))
}

func TestBaseTransferInsufficientBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(100))
	require.NoError(t, err)

	ok, err := l.BaseTransfer("alice", "bob", uint256.NewInt(101))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint256.NewInt(100), mustBalance(t, l, "alice"))
	assert.True(t, mustBalance(t, l, "bob").IsZero())
}

func TestBaseTransferMissingSender(t *testing.T) {
	l, _ := newTestLedger(t)

	// A never-seen account holds zero, so any positive transfer fails closed
	ok, err := l.BaseTransfer("ghost", "bob", uint256.NewInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBaseTransferSelf(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(1000))
	require.NoError(t, err)

	ok, err := l.BaseTransfer("alice", "alice", uint256.NewInt(400))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint256.NewInt(1000), mustBalance(t, l, "alice"))
}

func TestBaseTransferEmitsEvent(t *testing.T) {
	l, eventBus := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(1000))
	require.NoError(t, err)

	_, eventCh := eventBus.Subscribe()

	ok, err := l.BaseTransfer("alice", "bob", uint256.NewInt(7))
	require.NoError(t, err)
	require.True(t, ok)

	event := <-eventCh
	transfer, isTransfer := event.(*events.TransferOccurred)
	require.True(t, isTransfer)
	assert.Equal(t, "alice", transfer.From())
	assert.Equal(t, "bob", transfer.To())
	assert.Equal(t, uint256.NewInt(7), transfer.Amount())
}

func TestBaseTransferFrom(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(1000))
	require.NoError(t, err)
	require.NoError(t, l.Approve("alice", "carol", uint256.NewInt(500)))

	ok, err := l.BaseTransferFrom("carol", "alice", "bob", uint256.NewInt(300))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, uint256.NewInt(700), mustBalance(t, l, "alice"))
	assert.Equal(t, uint256.NewInt(300), mustBalance(t, l, "bob"))

	remaining, err := l.AllowanceOf("alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(200), remaining)
}

func TestBaseTransferFromInsufficientAllowance(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("alice", uint256.NewInt(1000))
	require.NoError(t, err)
	require.NoError(t, l.Approve("alice", "carol", uint256.NewInt(100)))

	ok, err := l.BaseTransferFrom("carol", "alice", "bob", uint256.NewInt(101))
	require.NoError(t, err)
	assert.False(t, ok)

	// Nothing moved, allowance untouched
	assert.Equal(t, uint256.NewInt(1000), mustBalance(t, l, "alice"))
	remaining, err := l.AllowanceOf("alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), remaining)
}

func TestApplyDebitCredits(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("signer", uint256.NewInt(2000))
	require.NoError(t, err)

	credits := []Credit{
		{To: "recipient", Amount: uint256.NewInt(400)},
		{To: "collector", Amount: uint256.NewInt(500)},
		{To: "relayer", Amount: uint256.NewInt(100)},
	}
	err = l.ApplyDebitCredits("signer", uint256.NewInt(1000), credits, true)
	require.NoError(t, err)

	assert.Equal(t, uint256.NewInt(1000), mustBalance(t, l, "signer"))
	assert.Equal(t, uint256.NewInt(400), mustBalance(t, l, "recipient"))
	assert.Equal(t, uint256.NewInt(500), mustBalance(t, l, "collector"))
	assert.Equal(t, uint256.NewInt(100), mustBalance(t, l, "relayer"))

	nonce, err := l.NonceOf("signer")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestApplyDebitCreditsToSelf(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.CreateAccount("signer", uint256.NewInt(1000))
	require.NoError(t, err)

	// The relayer credit flows back to the debited account
	credits := []Credit{
		{To: "recipient", Amount: uint256.NewInt(400)},
		{To: "signer", Amount: uint256.NewInt(100)},
	}
	err = l.ApplyDebitCredits("signer", uint256.NewInt(500), credits, false)
	require.NoError(t, err)

	assert.Equal(t, uint256.NewInt(600), mustBalance(t, l, "signer"))
	assert.Equal(t, uint256.NewInt(400), mustBalance(t, l, "recipient"))
}
