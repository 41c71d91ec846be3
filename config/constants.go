package config

import (
	"github.com/holiman/uint256"
)

// Token metadata. Fixed for the lifetime of a ledger instance.
const (
	TokenName     = "Meridian Euro"
	TokenSymbol   = "MEUR"
	TokenDecimals = 2
)

// TransferFee is the mandatory per-transfer charge routed to the fee
// collector, in minor units: 500 = 5.00 MEUR at 2 decimal places.
var TransferFee = uint256.NewInt(500)

// MaxTokensCount returns the hard supply cap, the largest representable
// 256-bit unsigned value.
func MaxTokensCount() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}
