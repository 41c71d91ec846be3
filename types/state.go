package types

import (
	"github.com/holiman/uint256"
)

// TokenState is the administrative state of the token ledger: the owner and
// fee collector identities, the global freeze flag and the running supply.
type TokenState struct {
	Owner        string       `json:"owner"`
	FeeCollector string       `json:"fee_collector"`
	Frozen       bool         `json:"frozen"`
	TotalSupply  *uint256.Int `json:"total_supply"`
}

// Clone returns a deep copy of the token state.
func (s *TokenState) Clone() *TokenState {
	supply := uint256.NewInt(0)
	if s.TotalSupply != nil {
		supply = new(uint256.Int).Set(s.TotalSupply)
	}
	return &TokenState{
		Owner:        s.Owner,
		FeeCollector: s.FeeCollector,
		Frozen:       s.Frozen,
		TotalSupply:  supply,
	}
}
