package wide

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	compactB = decimal.New(1, 15)
	compactM = decimal.New(1, 12)
	compactK = decimal.New(1, 9)
)

// MaxScaledDecimals is the largest token precision ParseScaled accepts;
// 10^39 already exceeds 2^128.
const MaxScaledDecimals = 38

// ParseScaled converts a human amount ("12.5") into base units for a token
// with the given number of decimals. Extra fractional precision is rejected
// rather than truncated.
func ParseScaled(s string, decimals int32) (Uint128, error) {
	if decimals < 0 || decimals > MaxScaledDecimals {
		return Uint128{}, fmt.Errorf("%w: decimals %d outside 0..%d", ErrOutOfRange, decimals, MaxScaledDecimals)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Uint128{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if d.IsZero() {
		return Uint128{}, nil
	}

	// bound the exponent before Shift materializes 10^exp
	exp := int64(d.Exponent()) + int64(decimals)
	if exp > MaxScaledDecimals {
		return Uint128{}, fmt.Errorf("%w: %s exceeds 128 bits", ErrOutOfRange, s)
	}
	if exp < -int64(len(d.Coefficient().String())) {
		return Uint128{}, fmt.Errorf("%w: %s has more than %d decimals", ErrOutOfRange, s, decimals)
	}

	units := d.Shift(decimals)
	if !units.IsInteger() {
		return Uint128{}, fmt.Errorf("%w: %s has more than %d decimals", ErrOutOfRange, s, decimals)
	}
	return Uint128FromBig(units.BigInt())
}

// FormatScaled renders base units as a decimal amount.
func FormatScaled(u Uint128, decimals int32) string {
	return decimal.NewFromBigInt(u.Big(), -decimals).String()
}

// Compact shortens large base-unit amounts for dashboards:
// >= 1e15 as n/1e9 "B", >= 1e12 as n/1e6 "M", >= 1e9 as n/1e3 "K".
func (u Uint128) Compact() string {
	d := decimal.NewFromBigInt(u.Big(), 0)
	switch {
	case d.GreaterThanOrEqual(compactB):
		return d.Shift(-9).StringFixed(0) + "B"
	case d.GreaterThanOrEqual(compactM):
		return d.Shift(-6).StringFixed(2) + "M"
	case d.GreaterThanOrEqual(compactK):
		return d.Shift(-3).StringFixed(2) + "K"
	}
	return u.String()
}
