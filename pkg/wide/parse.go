package wide

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned for strings that are not base-10 integers.
var ErrSyntax = errors.New("invalid integer syntax")

// ParseUint128 parses a base-10 string. Underscores between digits are
// accepted ("1_000_000"). A minus sign before well-formed digits is a range
// error; "-" alone or "-x" is still a syntax error.
func ParseUint128(s string) (Uint128, error) {
	digits, negative, err := splitSign(s)
	if err != nil {
		return Uint128{}, err
	}
	if negative {
		mag, err := parseDigits(digits)
		if errors.Is(err, ErrSyntax) {
			return Uint128{}, fmt.Errorf("%q: %w", s, err)
		}
		if err == nil && mag.IsZero() {
			return Uint128{}, nil
		}
		return Uint128{}, fmt.Errorf("%w: %q is negative", ErrOutOfRange, s)
	}
	u, err := parseDigits(digits)
	if err != nil {
		return Uint128{}, fmt.Errorf("%q: %w", s, err)
	}
	return u, nil
}

// ParseInt128 parses a base-10 string with an optional sign.
func ParseInt128(s string) (Int128, error) {
	digits, negative, err := splitSign(s)
	if err != nil {
		return Int128{}, err
	}
	mag, err := parseDigits(digits)
	if err != nil {
		return Int128{}, fmt.Errorf("%q: %w", s, err)
	}

	limit := MaxInt128.Bits()
	if negative {
		limit = MinInt128.Bits() // 2^127 as a magnitude
	}
	if mag.Cmp(limit) > 0 {
		return Int128{}, fmt.Errorf("%w: %q exceeds 128-bit signed range", ErrOutOfRange, s)
	}

	v := Int128FromBits(mag)
	if negative {
		if v == MinInt128 {
			return v, nil
		}
		v, _ = v.Neg()
	}
	return v, nil
}

func splitSign(s string) (string, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, ErrSyntax
	}
	switch s[0] {
	case '-':
		return s[1:], true, nil
	case '+':
		return s[1:], false, nil
	}
	return s, false, nil
}

// parseDigits accumulates digits as u = u*10 + d, checking every step.
func parseDigits(digits string) (Uint128, error) {
	if digits == "" {
		return Uint128{}, ErrSyntax
	}
	var u Uint128
	seen := false
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c == '_' {
			if !seen || i == len(digits)-1 || digits[i+1] == '_' {
				return Uint128{}, ErrSyntax
			}
			continue
		}
		if c < '0' || c > '9' {
			return Uint128{}, ErrSyntax
		}
		seen = true

		var overflow bool
		u, overflow = u.mul64(10)
		if overflow {
			return Uint128{}, ErrOutOfRange
		}
		u, overflow = u.Add(U64(uint64(c - '0')))
		if overflow {
			return Uint128{}, ErrOutOfRange
		}
	}
	if !seen {
		return Uint128{}, ErrSyntax
	}
	return u, nil
}
