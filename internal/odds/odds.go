// Package odds implements the dynamic payout-multiplier engine for two-sided
// markets.
//
// Each side's "pull" blends its share of the money staked with its share of
// the wager count. The side with more pull is the favorite and pays less. A
// proportional house edge is applied so implied probabilities sum to more
// than 100%, and the result is clamped into a fixed band.
//
// The package is pure and stateless: identical inputs always yield identical
// outputs. All multiplier math uses shopspring/decimal, never float64 for
// money.
package odds

import "github.com/shopspring/decimal"

var (
	// StakeWeight is the contribution of staked-amount share to a side's pull.
	StakeWeight = decimal.NewFromFloat(0.7)

	// CountWeight is the contribution of wager-count share to a side's pull.
	CountWeight = decimal.NewFromFloat(0.3)

	// HouseEdge is the proportional reduction applied to raw multipliers.
	HouseEdge = decimal.NewFromFloat(0.05)

	// MinOdds and MaxOdds bound every published multiplier.
	MinOdds = decimal.NewFromFloat(1.1)
	MaxOdds = decimal.NewFromFloat(10.0)

	// OddsScale is the number of decimal places for published multipliers.
	OddsScale int32 = 2

	half = decimal.NewFromFloat(0.5)
	one  = decimal.NewFromInt(1)
)

// Compute returns the payout multipliers for both sides of a market given
// each side's current wager count and staked total. It is total over its
// domain: zero-activity markets price at an even split.
func Compute(aCount, aStaked, bCount, bStaked int64) (oddsA, oddsB decimal.Decimal) {
	pullA := pull(aStaked, aStaked+bStaked, aCount, aCount+bCount)
	pullB := pull(bStaked, aStaked+bStaked, bCount, aCount+bCount)
	return multiplier(pullA), multiplier(pullB)
}

// pull computes StakeWeight*stakedShare + CountWeight*countShare for one
// side. A zero denominator means no activity on that dimension, which prices
// as an even split.
func pull(staked, totalStaked, count, totalCount int64) decimal.Decimal {
	return StakeWeight.Mul(share(staked, totalStaked)).
		Add(CountWeight.Mul(share(count, totalCount)))
}

func share(part, total int64) decimal.Decimal {
	if total == 0 {
		return half
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total))
}

// multiplier inverts a side's pull, applies the house edge, rounds, and
// clamps into [MinOdds, MaxOdds].
func multiplier(p decimal.Decimal) decimal.Decimal {
	if p.LessThanOrEqual(decimal.Zero) {
		// No backing at all on this side while the other side has some:
		// the raw multiplier diverges, so it pins at the ceiling.
		return MaxOdds
	}
	raw := one.Div(p)
	edged := raw.Mul(one.Sub(HouseEdge)).Round(OddsScale)

	if edged.LessThan(MinOdds) {
		return MinOdds
	}
	if edged.GreaterThan(MaxOdds) {
		return MaxOdds
	}
	return edged
}

// Payout returns round(stake * multiplier) in whole stake units. Computed
// once at placement and frozen on the wager.
func Payout(stake int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(multiplier).Round(0).IntPart()
}
