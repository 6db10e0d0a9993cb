package domain

import "errors"

var (
	ErrProviderUnavailable = errors.New("quote provider unavailable")
	ErrNoPriceAvailable    = errors.New("no price available")
	ErrPairNotConfigured   = errors.New("pair not configured")

	ErrLockNotFound          = errors.New("price lock not found or already used")
	ErrLockExpired           = errors.New("price lock expired")
	ErrLockOwnershipMismatch = errors.New("price lock belongs to another user")
	ErrLockPairMismatch      = errors.New("price lock pair mismatch")
	ErrLockDirectionMismatch = errors.New("price lock direction mismatch")
	ErrLockAmountMismatch    = errors.New("price lock amount mismatch")
)
