package types

import (
	"github.com/holiman/uint256"
)

// Account is one ledger account. Nonce is the next-expected delegated
// transfer nonce for this account when it acts as a signer; it starts at 0
// and advances by exactly 1 per accepted delegated transfer.
type Account struct {
	Address string       `json:"address"`
	Balance *uint256.Int `json:"balance"`
	Nonce   uint64       `json:"nonce"`
}

// NewAccount returns an empty account for addr.
func NewAccount(addr string) *Account {
	return &Account{
		Address: addr,
		Balance: uint256.NewInt(0),
		Nonce:   0,
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	balance := uint256.NewInt(0)
	if a.Balance != nil {
		balance = new(uint256.Int).Set(a.Balance)
	}
	return &Account{
		Address: a.Address,
		Balance: balance,
		Nonce:   a.Nonce,
	}
}
