// Package risk enforces pending-exposure limits on wager placement.
//
// A user repeatedly staking on the same contest concentrates risk in one
// outcome; a user spreading stakes over many open contests can lock up far
// more than any single bet cap suggests. This package bounds both: the
// pending stake on any one market, and the aggregate pending stake across
// all markets.
package risk

import "errors"

var (
	// ErrPerMarketLimitExceeded is returned when a placement would push an
	// account's pending stake on a single market beyond the per-market maximum.
	ErrPerMarketLimitExceeded = errors.New("risk: per-market pending stake limit exceeded")

	// ErrTotalLimitExceeded is returned when a placement would push an
	// account's aggregate pending stake across all markets beyond the total
	// maximum.
	ErrTotalLimitExceeded = errors.New("risk: total pending stake limit exceeded")
)

// ExposureLimiter enforces pending-stake limits per account.
type ExposureLimiter struct {
	// MaxPerMarket is the maximum pending stake an account may hold on any
	// single market. Zero disables the check.
	MaxPerMarket int64

	// MaxTotalPending is the maximum aggregate pending stake an account may
	// hold across all markets. Zero disables the check.
	MaxTotalPending int64
}

// NewExposureLimiter creates a limiter with the given per-market and
// aggregate pending-stake limits.
func NewExposureLimiter(maxPerMarket, maxTotalPending int64) *ExposureLimiter {
	return &ExposureLimiter{
		MaxPerMarket:    maxPerMarket,
		MaxTotalPending: maxTotalPending,
	}
}

// CheckLimit validates whether adding stake on targetMarket respects the
// limits, given the account's current pending stake per market. Returns nil
// if the placement is within limits.
func (l *ExposureLimiter) CheckLimit(targetMarket string, stake int64, pendingByMarket map[string]int64) error {
	if l.MaxPerMarket > 0 {
		if pendingByMarket[targetMarket]+stake > l.MaxPerMarket {
			return ErrPerMarketLimitExceeded
		}
	}

	if l.MaxTotalPending > 0 {
		total := stake
		for _, pending := range pendingByMarket {
			total += pending
		}
		if total > l.MaxTotalPending {
			return ErrTotalLimitExceeded
		}
	}

	return nil
}
