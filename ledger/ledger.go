package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"tokend/db"
	"tokend/events"
	"tokend/logx"
	"tokend/store"
	"tokend/types"
)

// Ledger is the balance and allowance bookkeeping primitive the token layer
// builds on. It knows nothing about fees, freezing or signatures: it moves
// value between accounts with overflow-checked arithmetic and emits one
// TransferOccurred notification per movement.
type Ledger struct {
	mu             sync.RWMutex
	accountStore   store.AccountStore
	allowanceStore store.AllowanceStore
	eventBus       *events.EventBus
}

func NewLedger(accountStore store.AccountStore, allowanceStore store.AllowanceStore, eventBus *events.EventBus) *Ledger {
	return &Ledger{
		accountStore:   accountStore,
		allowanceStore: allowanceStore,
		eventBus:       eventBus,
	}
}

// CreateAccount creates and stores a new account, overwriting nothing: an
// existing account is returned as-is.
func (l *Ledger) CreateAccount(addr string, balance *uint256.Int) (*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("could not check existence of account: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	account := types.NewAccount(addr)
	account.Balance = new(uint256.Int).Set(balance)
	if err := l.accountStore.Store(account); err != nil {
		return nil, fmt.Errorf("failed to store account: %w", err)
	}
	return account, nil
}

// GetAccount returns account with addr (nil if not exist)
func (l *Ledger) GetAccount(addr string) (*types.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountStore.GetByAddr(addr)
}

// BalanceOf returns current balance for addr; missing accounts hold zero
func (l *Ledger) BalanceOf(addr string) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(acc.Balance), nil
}

// NonceOf returns the next-expected delegated transfer nonce for addr
func (l *Ledger) NonceOf(addr string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, nil
	}
	return acc.Nonce, nil
}

// AllowanceOf returns the remaining allowance owner has granted spender
func (l *Ledger) AllowanceOf(owner, spender string) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowanceStore.Get(owner, spender)
}

// Approve overwrites the allowance owner grants spender
func (l *Ledger) Approve(owner, spender string, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.allowanceStore.Set(owner, spender, amount); err != nil {
		return err
	}
	logx.Info("LEDGER", fmt.Sprintf("Approved allowance %s: %s -> %s", amount.Dec(), owner, spender))
	return nil
}

// BaseTransfer moves amount from one account to another. It returns false
// when from's balance does not cover amount, with no state mutation; any
// other failure is an infrastructure error.
func (l *Ledger) BaseTransfer(from, to string, amount *uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transferLocked(from, to, amount)
}

// BaseTransferFrom moves amount out of from on behalf of spender, consuming
// spender's allowance. Returns false when the allowance or balance does not
// cover amount, with no state mutation.
func (l *Ledger) BaseTransferFrom(spender, from, to string, amount *uint256.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, err := l.allowanceStore.Get(from, spender)
	if err != nil {
		return false, err
	}
	remaining, err := SafeSub(allowance, amount)
	if err != nil {
		return false, nil
	}

	ok, err := l.transferLocked(from, to, amount)
	if err != nil || !ok {
		return ok, err
	}

	if err := l.allowanceStore.Set(from, spender, remaining); err != nil {
		return false, fmt.Errorf("failed to update allowance: %w", err)
	}
	return true, nil
}

func (l *Ledger) transferLocked(from, to string, amount *uint256.Int) (bool, error) {
	state, err := l.loadAccounts(from, to)
	if err != nil {
		return false, err
	}

	sender := state[from]
	recipient := state[to]

	newSenderBalance, err := SafeSub(sender.Balance, amount)
	if err != nil {
		return false, nil
	}
	sender.Balance = newSenderBalance

	// With from == to, sender and recipient alias the same account, so the
	// credit reads the already debited balance and the transfer nets to zero.
	newRecipientBalance, err := SafeAdd(recipient.Balance, amount)
	if err != nil {
		return false, nil
	}
	recipient.Balance = newRecipientBalance

	if err := l.commitLocked(state); err != nil {
		return false, err
	}

	l.emitTransfer(from, to, amount)
	return true, nil
}

// ApplyDebitCredits atomically debits one account and applies a set of
// credits, bumping the debited account's nonce when requested. Every
// precondition must have been checked by the caller: a shortfall here is an
// infrastructure error, not a soft failure. One TransferOccurred notification
// fires per credit, each sourced at the debited account.
func (l *Ledger) ApplyDebitCredits(debit string, total *uint256.Int, credits []Credit, bumpNonce bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	addrs := make([]string, 0, len(credits)+1)
	addrs = append(addrs, debit)
	for _, c := range credits {
		addrs = append(addrs, c.To)
	}
	state, err := l.loadAccounts(addrs...)
	if err != nil {
		return err
	}

	debited := state[debit]
	newBalance, err := SafeSub(debited.Balance, total)
	if err != nil {
		return fmt.Errorf("debit of %s underflows balance of %s", total.Dec(), debit)
	}
	debited.Balance = newBalance

	for _, c := range credits {
		acc := state[c.To]
		credited, err := SafeAdd(acc.Balance, c.Amount)
		if err != nil {
			return fmt.Errorf("credit of %s overflows balance of %s", c.Amount.Dec(), c.To)
		}
		acc.Balance = credited
	}

	if bumpNonce {
		debited.Nonce++
	}

	if err := l.commitLocked(state); err != nil {
		return err
	}

	for _, c := range credits {
		l.emitTransfer(debit, c.To, c.Amount)
	}
	return nil
}

// Credit is one balance credit within an atomic multi-leg movement.
type Credit struct {
	To     string
	Amount *uint256.Int
}

// SetBalanceAndState force-writes an account balance and the token state in
// one provider batch, so a crash cannot persist a supply change without its
// balance change or vice versa. Reserved for supply control, which mints into
// and burns from the owner account. Both stores must share one provider.
func (l *Ledger) SetBalanceAndState(addr string, balance *uint256.Int, state *types.TokenState, stateStore store.StateStore) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.loadAccounts(addr)
	if err != nil {
		return err
	}
	accounts[addr].Balance = new(uint256.Int).Set(balance)

	err = l.accountStore.StoreBatchWith([]*types.Account{accounts[addr]}, func(batch db.DatabaseBatch) error {
		return stateStore.StageTo(batch, state)
	})
	if err != nil {
		return fmt.Errorf("failed to persist balance and token state: %w", err)
	}
	return nil
}

// GetAllAccounts returns every account in the ledger
func (l *Ledger) GetAllAccounts() ([]*types.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts, err := l.accountStore.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	return accounts, nil
}

// loadAccounts loads the named accounts into a working map, creating missing
// ones with zero balance. Duplicate addresses map to the same instance so
// self-referential movements stay consistent.
func (l *Ledger) loadAccounts(addrs ...string) (map[string]*types.Account, error) {
	state := make(map[string]*types.Account, len(addrs))
	for _, addr := range addrs {
		if _, ok := state[addr]; ok {
			continue
		}
		acc, err := l.accountStore.GetByAddr(addr)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = types.NewAccount(addr)
		}
		state[addr] = acc
	}
	return state, nil
}

// commitLocked persists the working map in one batch
func (l *Ledger) commitLocked(state map[string]*types.Account) error {
	accounts := make([]*types.Account, 0, len(state))
	for _, acc := range state {
		accounts = append(accounts, acc)
	}
	if err := l.accountStore.StoreBatch(accounts); err != nil {
		return fmt.Errorf("failed to persist accounts: %w", err)
	}
	return nil
}

func (l *Ledger) emitTransfer(from, to string, amount *uint256.Int) {
	logx.Info("LEDGER", fmt.Sprintf("Transfer %s: %s -> %s", amount.Dec(), from, to))
	if l.eventBus != nil {
		l.eventBus.Publish(events.NewTransferOccurred(from, to, amount))
	}
}
