package core

import "errors"

// Sentinel error kinds returned by the ledger engine. HTTP handlers in
// apiserver map these to the {success:false, error:<kind>} shape spec.md §7
// calls for; peer handlers close the connection on any of these.
var (
	ErrInvalidSignature      = errors.New("InvalidSignature")
	ErrInvalidAddress        = errors.New("InvalidAddress")
	ErrInsufficientBalance   = errors.New("InsufficientBalance")
	ErrUnknownAccount        = errors.New("UnknownAccount")
	ErrUnknownToken          = errors.New("UnknownToken")
	ErrUnknownValidator      = errors.New("UnknownValidator")
	ErrUnknownContract       = errors.New("UnknownContract")
	ErrTradingNotStarted     = errors.New("TradingNotStarted")
	ErrBelowMinimumLiquidity = errors.New("BelowMinimumLiquidity")
	ErrVaultLocked           = errors.New("VaultLocked")
	ErrVaultNotOwned         = errors.New("VaultNotOwned")
	ErrPositionNotFound      = errors.New("PositionNotFound")
	ErrChainDiscontinuity    = errors.New("ChainDiscontinuity")
	ErrStoreFailure          = errors.New("StoreFailure")
)
