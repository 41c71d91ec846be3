package interfaces

import (
	"github.com/holiman/uint256"
)

// TokenService is the full entry-point surface of the token ledger, consumed
// by the RPC layer. Mutating operations report routine rejections as a false
// first return with a nil error; a non-nil error is either an authorization
// fault or an infrastructure failure.
type TokenService interface {
	Name() string
	Symbol() string
	Decimals() uint8
	TotalSupply() *uint256.Int
	Owner() string
	FeeCollector() string
	Frozen() bool

	BalanceOf(addr string) (*uint256.Int, error)
	AllowanceOf(owner, spender string) (*uint256.Int, error)
	NonceOf(addr string) (uint64, error)

	Approve(caller, spender string, value *uint256.Int) (bool, error)
	Transfer(caller, to string, value *uint256.Int) (bool, error)
	TransferFrom(caller, from, to string, value *uint256.Int) (bool, error)
	DelegatedTransfer(relayer, to string, value, fee *uint256.Int, nonce uint64, sig string) (bool, error)

	CreateTokens(caller string, value *uint256.Int) (bool, error)
	BurnTokens(caller string, value *uint256.Int) (bool, error)
	FreezeTransfers(caller string) (bool, error)
	UnfreezeTransfers(caller string) (bool, error)
	SetOwner(caller, newOwner string) (bool, error)
	SetFeeCollector(caller, newCollector string) (bool, error)
}
