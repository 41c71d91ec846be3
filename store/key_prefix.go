package store

// Declare database key prefix for objects
const (
	PrefixAccount   = "account:"
	PrefixAllowance = "allowance:"

	KeyTokenState = "state:token"
)
