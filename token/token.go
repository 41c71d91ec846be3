package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"tokend/config"
	"tokend/events"
	"tokend/ledger"
	"tokend/logx"
	"tokend/store"
	"tokend/types"
)

var (
	// ErrNotOwner is the hard fault raised when a privileged entry point is
	// called by anyone but the current owner. Unlike soft failures it is an
	// operator error: callers must not retry without fixing their identity.
	ErrNotOwner = errors.New("caller is not the ledger owner")

	// ErrNotInitialized is returned when opening a ledger whose genesis has
	// never been written.
	ErrNotInitialized = errors.New("ledger is not initialized")

	// ErrAlreadyInitialized is returned when genesis is applied twice.
	ErrAlreadyInitialized = errors.New("ledger is already initialized")
)

// Token is the fee-charging token ledger. It wraps the ledger primitive with
// the mandatory per-transfer fee, the delegated transfer protocol, supply
// control under a hard cap, a global freeze switch and owner-gated
// administration.
//
// Every entry point runs under one mutex, which stands in for the whole-call
// serialization the original execution environment guarantees. All
// preconditions are checked before the first mutation, so a rejected call
// leaves the ledger untouched.
type Token struct {
	mu         sync.Mutex
	ledgerID   string
	ledger     *ledger.Ledger
	stateStore store.StateStore
	state      *types.TokenState
	eventBus   *events.EventBus
}

// NewToken opens an already initialized token ledger.
func NewToken(ledgerID string, lgr *ledger.Ledger, stateStore store.StateStore, eventBus *events.EventBus) (*Token, error) {
	state, err := stateStore.Get()
	if err != nil {
		return nil, fmt.Errorf("could not load token state: %w", err)
	}
	if state == nil {
		return nil, ErrNotInitialized
	}

	logx.Info("TOKEN", fmt.Sprintf("Opened ledger %s: owner=%s, fee_collector=%s, supply=%s, frozen=%t",
		ledgerID, state.Owner, state.FeeCollector, state.TotalSupply.Dec(), state.Frozen))

	return &Token{
		ledgerID:   ledgerID,
		ledger:     lgr,
		stateStore: stateStore,
		state:      state,
		eventBus:   eventBus,
	}, nil
}

// Initialize writes the genesis state of a fresh ledger: the owner and fee
// collector identities and any pre-funded accounts. Re-initializing an
// existing ledger is an error.
func Initialize(genesis *config.GenesisConfig, lgr *ledger.Ledger, stateStore store.StateStore) error {
	existing, err := stateStore.Get()
	if err != nil {
		return fmt.Errorf("could not check token state: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}

	supply := uint256.NewInt(0)
	for _, acc := range genesis.Accounts {
		amount := acc.Amount
		if amount == nil {
			amount = uint256.NewInt(0)
		}
		newSupply, err := ledger.SafeAdd(supply, amount)
		if err != nil {
			return fmt.Errorf("genesis balances exceed the maximum supply")
		}
		supply = newSupply
		if _, err := lgr.CreateAccount(acc.Address, amount); err != nil {
			return fmt.Errorf("could not create genesis account %s: %w", acc.Address, err)
		}
	}

	state := &types.TokenState{
		Owner:        genesis.Owner,
		FeeCollector: genesis.FeeCollector,
		Frozen:       false,
		TotalSupply:  supply,
	}
	if err := stateStore.Store(state); err != nil {
		return fmt.Errorf("could not persist genesis token state: %w", err)
	}

	logx.Info("TOKEN", fmt.Sprintf("Initialized ledger %s with %d genesis accounts, supply=%s",
		genesis.LedgerID, len(genesis.Accounts), supply.Dec()))
	return nil
}

// --- Pure queries ---

// Name returns the token name
func (t *Token) Name() string { return config.TokenName }

// Symbol returns the token ticker symbol
func (t *Token) Symbol() string { return config.TokenSymbol }

// Decimals returns the number of minor-unit decimal places
func (t *Token) Decimals() uint8 { return config.TokenDecimals }

// TotalSupply returns the current total supply
func (t *Token) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(t.state.TotalSupply)
}

// Owner returns the current owner identity
func (t *Token) Owner() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Owner
}

// FeeCollector returns the current fee collector identity
func (t *Token) FeeCollector() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.FeeCollector
}

// Frozen reports whether value-moving operations are currently refused
func (t *Token) Frozen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Frozen
}

// BalanceOf returns the balance of addr
func (t *Token) BalanceOf(addr string) (*uint256.Int, error) {
	return t.ledger.BalanceOf(addr)
}

// AllowanceOf returns the remaining allowance owner has granted spender
func (t *Token) AllowanceOf(owner, spender string) (*uint256.Int, error) {
	return t.ledger.AllowanceOf(owner, spender)
}

// NonceOf returns the next-expected delegated transfer nonce for addr
func (t *Token) NonceOf(addr string) (uint64, error) {
	return t.ledger.NonceOf(addr)
}

// --- Value movement ---

// Approve overwrites the allowance caller grants spender. Approvals are not
// value-moving and stay available while transfers are frozen.
func (t *Token) Approve(caller, spender string, value *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ledger.Approve(caller, spender, value); err != nil {
		return false, err
	}
	return true, nil
}

// Transfer moves value from caller to recipient and additionally routes the
// fixed fee from caller to the fee collector. Routine rejections (frozen
// ledger, balance short of value plus fee) return false with no state
// mutation.
func (t *Token) Transfer(caller, to string, value *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Frozen {
		return false, nil
	}

	balance, err := t.ledger.BalanceOf(caller)
	if err != nil {
		return false, err
	}
	remaining, err := ledger.SafeSub(balance, value)
	if err != nil {
		return false, nil
	}
	if _, err := ledger.SafeSub(remaining, config.TransferFee); err != nil {
		return false, nil
	}

	t.mustBaseTransfer(caller, to, value)
	t.mustBaseTransfer(caller, t.state.FeeCollector, config.TransferFee)
	return true, nil
}

// TransferFrom moves value out of from on caller's allowance and routes the
// fixed fee from from to the fee collector. The fee is charged to the source
// account and does not consume allowance.
func (t *Token) TransferFrom(caller, from, to string, value *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Frozen {
		return false, nil
	}

	allowance, err := t.ledger.AllowanceOf(from, caller)
	if err != nil {
		return false, err
	}
	if _, err := ledger.SafeSub(allowance, value); err != nil {
		return false, nil
	}

	balance, err := t.ledger.BalanceOf(from)
	if err != nil {
		return false, err
	}
	remaining, err := ledger.SafeSub(balance, value)
	if err != nil {
		return false, nil
	}
	if _, err := ledger.SafeSub(remaining, config.TransferFee); err != nil {
		return false, nil
	}

	ok, err := t.ledger.BaseTransferFrom(caller, from, to, value)
	if err != nil {
		panic(fmt.Sprintf("ledger repudiated transferFrom after preconditions passed: %v", err))
	}
	if !ok {
		panic("ledger repudiated transferFrom after preconditions passed")
	}
	t.mustBaseTransfer(from, t.state.FeeCollector, config.TransferFee)
	return true, nil
}

// mustBaseTransfer runs one ledger movement whose preconditions have already
// been verified. A repudiation at this point means the wrapper and the
// primitive disagree about the ledger's contents, which is a fatal
// inconsistency rather than a routine rejection.
func (t *Token) mustBaseTransfer(from, to string, amount *uint256.Int) {
	ok, err := t.ledger.BaseTransfer(from, to, amount)
	if err != nil {
		panic(fmt.Sprintf("ledger repudiated transfer after preconditions passed: %v", err))
	}
	if !ok {
		panic("ledger repudiated transfer after preconditions passed")
	}
}

// --- Supply control ---

// CreateTokens issues value new tokens to the owner's balance. Only the owner
// may call it (hard fault otherwise). Issuance beyond the maximum supply is a
// soft failure; a zero value succeeds trivially with no event.
func (t *Token) CreateTokens(caller string, value *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}
	if value.IsZero() {
		return true, nil
	}

	headroom, err := ledger.SafeSub(config.MaxTokensCount(), t.state.TotalSupply)
	if err != nil {
		return false, fmt.Errorf("total supply exceeds the maximum supply: %w", err)
	}
	if _, err := ledger.SafeSub(headroom, value); err != nil {
		return false, nil
	}

	balance, err := t.ledger.BalanceOf(t.state.Owner)
	if err != nil {
		return false, err
	}
	newBalance, err := ledger.SafeAdd(balance, value)
	if err != nil {
		return false, fmt.Errorf("owner balance overflows under the supply cap: %w", err)
	}
	newSupply, err := ledger.SafeAdd(t.state.TotalSupply, value)
	if err != nil {
		return false, fmt.Errorf("supply overflows under the supply cap: %w", err)
	}

	// Balance and supply land in one batch; in-memory state follows only
	// after the commit, so a failed write leaves both views unchanged.
	newState := t.state.Clone()
	newState.TotalSupply = newSupply
	if err := t.ledger.SetBalanceAndState(t.state.Owner, newBalance, newState, t.stateStore); err != nil {
		return false, err
	}
	t.state = newState

	logx.Info("TOKEN", fmt.Sprintf("Minted %s to owner %s, supply now %s", value.Dec(), t.state.Owner, newSupply.Dec()))
	if t.eventBus != nil {
		t.eventBus.Publish(events.NewTokensMinted(t.state.Owner, value))
	}
	return true, nil
}

// BurnTokens destroys value tokens from the owner's balance. Only the owner
// may call it (hard fault otherwise). A balance shortfall is a soft failure;
// a zero value succeeds trivially with no event.
func (t *Token) BurnTokens(caller string, value *uint256.Int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}
	if value.IsZero() {
		return true, nil
	}

	balance, err := t.ledger.BalanceOf(t.state.Owner)
	if err != nil {
		return false, err
	}
	newBalance, err := ledger.SafeSub(balance, value)
	if err != nil {
		return false, nil
	}
	newSupply, err := ledger.SafeSub(t.state.TotalSupply, value)
	if err != nil {
		return false, fmt.Errorf("owner balance exceeds total supply: %w", err)
	}

	newState := t.state.Clone()
	newState.TotalSupply = newSupply
	if err := t.ledger.SetBalanceAndState(t.state.Owner, newBalance, newState, t.stateStore); err != nil {
		return false, err
	}
	t.state = newState

	logx.Info("TOKEN", fmt.Sprintf("Burned %s from owner %s, supply now %s", value.Dec(), t.state.Owner, newSupply.Dec()))
	if t.eventBus != nil {
		t.eventBus.Publish(events.NewTokensBurned(t.state.Owner, value))
	}
	return true, nil
}

// --- Freeze switch ---

// FreezeTransfers stops every value-moving operation until unfrozen. Freezing
// an already frozen ledger is a no-op with no notification. Administrative
// operations stay available while frozen.
func (t *Token) FreezeTransfers(caller string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}
	if t.state.Frozen {
		return true, nil
	}

	newState := t.state.Clone()
	newState.Frozen = true
	if err := t.stateStore.Store(newState); err != nil {
		return false, err
	}
	t.state = newState

	logx.Warn("TOKEN", "Transfers frozen by owner")
	if t.eventBus != nil {
		t.eventBus.Publish(events.NewTransfersFrozen())
	}
	return true, nil
}

// UnfreezeTransfers re-enables value-moving operations. Unfreezing an active
// ledger is a no-op with no notification.
func (t *Token) UnfreezeTransfers(caller string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}
	if !t.state.Frozen {
		return true, nil
	}

	newState := t.state.Clone()
	newState.Frozen = false
	if err := t.stateStore.Store(newState); err != nil {
		return false, err
	}
	t.state = newState

	logx.Info("TOKEN", "Transfers unfrozen by owner")
	if t.eventBus != nil {
		t.eventBus.Publish(events.NewTransfersUnfrozen())
	}
	return true, nil
}

// --- Access control ---

// SetOwner hands ownership to newOwner immediately. Owner-gated, hard fault
// on violation, no transition period, no notification.
func (t *Token) SetOwner(caller, newOwner string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}

	newState := t.state.Clone()
	newState.Owner = newOwner
	if err := t.stateStore.Store(newState); err != nil {
		return false, err
	}
	t.state = newState
	logx.Info("TOKEN", fmt.Sprintf("Owner changed to %s", newOwner))
	return true, nil
}

// SetFeeCollector redirects future fees to newCollector immediately.
// Owner-gated, hard fault on violation, no notification.
func (t *Token) SetFeeCollector(caller, newCollector string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.state.Owner {
		return false, ErrNotOwner
	}

	newState := t.state.Clone()
	newState.FeeCollector = newCollector
	if err := t.stateStore.Store(newState); err != nil {
		return false, err
	}
	t.state = newState
	logx.Info("TOKEN", fmt.Sprintf("Fee collector changed to %s", newCollector))
	return true, nil
}
