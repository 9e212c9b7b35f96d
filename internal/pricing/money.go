package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value stored in minor units.
type Money = int64

// Bps expresses a rate in basis points (one hundredth of a percent).
// A 20% discount is 2000 bps, a 0.15 tax rate is 1500 bps.
type Bps = int64

// PercentOf applies a basis-point rate to an amount of minor units,
// rounding to the nearest minor unit (half away from zero).
func PercentOf(amount Money, rate Bps) Money {
	if amount == 0 || rate == 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(rate)).
		Div(decimal.NewFromInt(10_000)).
		Round(0).
		IntPart()
}

// Share splits amount proportionally by part/whole, rounded to the
// nearest minor unit. whole must be non-zero.
func Share(amount, part, whole Money) Money {
	if whole == 0 || part == 0 || amount == 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(part)).
		Div(decimal.NewFromInt(whole)).
		Round(0).
		IntPart()
}

// ParseAmount converts a decimal currency string such as "19.99" into
// minor units. Used at admin/config boundaries; the engine itself only
// ever works in minor units.
func ParseAmount(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// ParseRate converts a decimal fraction such as "0.15" into basis
// points (1500).
func ParseRate(s string) (Bps, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(10_000)).Round(0).IntPart(), nil
}

// FormatAmount renders minor units as a decimal currency string.
func FormatAmount(m Money) string {
	return decimal.NewFromInt(m).Div(decimal.NewFromInt(100)).StringFixed(2)
}
