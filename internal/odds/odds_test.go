package odds

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Determinism and the zero-activity default ---

func TestCompute_ZeroActivityIsEvenSplit(t *testing.T) {
	oddsA, oddsB := Compute(0, 0, 0, 0)

	if !oddsA.Equal(oddsB) {
		t.Errorf("zero-activity market should price both sides equally: A=%s B=%s", oddsA, oddsB)
	}
	// Even pull of 0.5 inverts to 2.0; the 5% edge brings it to 1.9.
	if !oddsA.Equal(d(1.9)) {
		t.Errorf("expected 1.9 for even market, got %s", oddsA)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a1, b1 := Compute(3, 250, 7, 900)
	a2, b2 := Compute(3, 250, 7, 900)

	if !a1.Equal(a2) || !b1.Equal(b2) {
		t.Errorf("identical inputs must yield identical outputs: (%s,%s) vs (%s,%s)",
			a1, b1, a2, b2)
	}
}

// --- Favorites pay less ---

func TestCompute_HeavierSideIsFavorite(t *testing.T) {
	oddsA, oddsB := Compute(10, 1000, 2, 100)

	if oddsA.GreaterThanOrEqual(oddsB) {
		t.Errorf("side with more backing should pay less: A=%s B=%s", oddsA, oddsB)
	}
}

func TestCompute_StakeWeighsMoreThanCount(t *testing.T) {
	// Side A has more wagers, side B has far more money. Money dominates.
	oddsA, oddsB := Compute(10, 100, 2, 1000)

	if oddsB.GreaterThanOrEqual(oddsA) {
		t.Errorf("staked amount should dominate count: A=%s B=%s", oddsA, oddsB)
	}
}

// --- Clamping ---

func TestCompute_ClampedWithinBounds(t *testing.T) {
	cases := []struct {
		name                           string
		aCount, aStaked, bCount, bStaked int64
	}{
		{"one-sided", 50, 100000, 0, 0},
		{"lopsided", 1, 1, 100, 1000000},
		{"balanced", 5, 500, 5, 500},
		{"count-only", 3, 0, 8, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oddsA, oddsB := Compute(tc.aCount, tc.aStaked, tc.bCount, tc.bStaked)
			for _, o := range []decimal.Decimal{oddsA, oddsB} {
				if o.LessThan(MinOdds) || o.GreaterThan(MaxOdds) {
					t.Errorf("odds %s outside [%s, %s]", o, MinOdds, MaxOdds)
				}
			}
		})
	}
}

func TestCompute_EmptySidePinsAtCeiling(t *testing.T) {
	// Nothing behind side B at all: its raw multiplier diverges.
	_, oddsB := Compute(5, 500, 0, 0)
	if !oddsB.Equal(MaxOdds) {
		t.Errorf("unbacked side should pin at %s, got %s", MaxOdds, oddsB)
	}
}

// --- House edge ---

func TestCompute_ImpliedProbabilitiesExceedOne(t *testing.T) {
	oddsA, oddsB := Compute(4, 400, 6, 600)

	one := decimal.NewFromInt(1)
	implied := one.Div(oddsA).Add(one.Div(oddsB))
	if implied.LessThanOrEqual(one) {
		t.Errorf("house edge should push implied probability sum above 1, got %s", implied)
	}
}

// --- Payout rounding ---

func TestPayout(t *testing.T) {
	cases := []struct {
		stake int64
		odds  decimal.Decimal
		want  int64
	}{
		{100, d(1.9), 190},
		{100, d(1.1), 110},
		{33, d(1.5), 50},  // 49.5 rounds up
		{10, d(10.0), 100},
		{1, d(1.1), 1}, // 1.1 rounds down
	}

	for _, tc := range cases {
		if got := Payout(tc.stake, tc.odds); got != tc.want {
			t.Errorf("Payout(%d, %s) = %d, want %d", tc.stake, tc.odds, got, tc.want)
		}
	}
}
