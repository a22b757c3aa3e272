package model

import "errors"

// Placement and settlement error taxonomy. Validation errors are returned to
// the caller with no side effect and are never retried; ErrVersionConflict is
// the one error a caller may retry automatically.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account is deactivated")
	ErrMarketNotFound      = errors.New("market not found")
	ErrWagerNotFound       = errors.New("wager not found")
	ErrInvalidSide         = errors.New("side must be sideA or sideB")
	ErrInvalidStake        = errors.New("stake outside allowed bounds")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMarketNotOpen       = errors.New("market is not open for wagers")
	ErrMarketStarted       = errors.New("market has already started")
	ErrExposureLimit       = errors.New("pending exposure limit exceeded")
	ErrInvalidTransition   = errors.New("illegal market status transition")
	ErrOutcomeAlreadySet   = errors.New("market outcome already set")
	ErrInvalidOutcome      = errors.New("outcome must be sideA, sideB or tie")
	ErrVersionConflict     = errors.New("concurrent write conflict")
	ErrWagerSettled        = errors.New("wager already settled")
	ErrDuplicateEventCode  = errors.New("market for event code already exists")
	ErrDuplicateHandle     = errors.New("account for handle already exists")
)
