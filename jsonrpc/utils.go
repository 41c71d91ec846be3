package jsonrpc

import (
	"crypto/sha256"
	"fmt"
)

// JSON-RPC Method name constants
const (
	// Token queries
	MethodTokenName        = "token.name"
	MethodTokenSymbol      = "token.symbol"
	MethodTokenDecimals    = "token.decimals"
	MethodTokenTotalSupply = "token.totalsupply"
	MethodTokenState       = "token.state"
	MethodTokenBalance     = "token.balance"
	MethodTokenAllowance   = "token.allowance"
	MethodTokenNonce       = "token.nonce"

	// Token mutations
	MethodTokenApprove           = "token.approve"
	MethodTokenTransfer          = "token.transfer"
	MethodTokenTransferFrom      = "token.transferfrom"
	MethodTokenDelegatedTransfer = "token.delegatedtransfer"

	// Admin methods
	MethodAdminCreateTokens    = "admin.createtokens"
	MethodAdminBurnTokens      = "admin.burntokens"
	MethodAdminFreeze          = "admin.freeze"
	MethodAdminUnfreeze        = "admin.unfreeze"
	MethodAdminSetOwner        = "admin.setowner"
	MethodAdminSetFeeCollector = "admin.setfeecollector"

	// Health methods
	MethodHealthCheck = "health.check"
)

// RequestDigest computes the digest a caller signs to authenticate one RPC
// mutation: sha256 over the method name, the ledger instance identity and
// the request fields in declaration order. The ledger identity keeps a
// captured envelope from being replayed against another deployment.
func RequestDigest(method, ledgerID string, fields ...string) []byte {
	payload := method + "|" + ledgerID
	for _, f := range fields {
		payload += "|" + f
	}
	sum := sha256.Sum256([]byte(payload))
	return sum[:]
}

// FormatNonce renders a nonce for digest serialization
func FormatNonce(nonce uint64) string {
	return fmt.Sprintf("%d", nonce)
}
