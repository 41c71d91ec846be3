package errors

import (
	"tokend/jsonx"
)

// LedgerErrorCode represents standardized error codes for ledger operations
type LedgerErrorCode string

const (
	// General errors
	ErrCodeInternal LedgerErrorCode = "internal_error"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeInvalidAddress   = "invalid_address"
	ErrCodeInvalidAmount    = "invalid_amount"
	ErrCodeInvalidNonce     = "invalid_nonce"

	// Business rejections (soft failures at the token layer)
	ErrCodeAccountNotFound       = "account_not_found"
	ErrCodeInsufficientFunds     = "insufficient_funds"
	ErrCodeInsufficientAllowance = "insufficient_allowance"
	ErrCodeTransfersFrozen       = "transfers_frozen"
	ErrCodeSupplyCapExceeded     = "supply_cap_exceeded"

	// Authorization faults (hard aborts at the token layer)
	ErrCodeNotOwner = "not_owner"

	// Replay protection
	ErrCodeStaleRequest     = "stale_request"
	ErrCodeDuplicateRequest = "duplicate_request"

	// Throttling
	ErrCodeRateLimited = "rate_limited"
)

// LedgerError is a standardized error crossing the RPC boundary
type LedgerError struct {
	Code    LedgerErrorCode `json:"code"`
	Message string          `json:"message"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	err, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(err)
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest        = "Request format is invalid"
	ErrMsgInvalidSignature      = "Signature is invalid"
	ErrMsgInvalidAddress        = "Account address is invalid"
	ErrMsgInvalidAmount         = "Amount is invalid"
	ErrMsgInvalidNonce          = "Delegated transfer nonce does not match"
	ErrMsgAccountNotFound       = "Account does not exist"
	ErrMsgInsufficientFunds     = "Not enough balance to cover value and fees"
	ErrMsgInsufficientAllowance = "Allowance does not cover the requested value"
	ErrMsgTransfersFrozen       = "Transfers are currently frozen"
	ErrMsgSupplyCapExceeded     = "Requested issuance exceeds the maximum supply"
	ErrMsgNotOwner              = "Caller is not the ledger owner"
	ErrMsgStaleRequest          = "Request timestamp is outside the accepted window"
	ErrMsgDuplicateRequest      = "Request was already processed"
	ErrMsgRateLimited           = "Too many requests, slow down"
	ErrMsgInternalError         = "Internal error occurred, please retry"
)

// NewLedgerError creates a LedgerError with the given code and message
func NewLedgerError(code LedgerErrorCode, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}
