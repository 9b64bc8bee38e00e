package wide

import (
	"errors"
	"math/big"
	"math/bits"
	"strconv"
)

// ErrOutOfRange is returned when a value does not fit the target width.
var ErrOutOfRange = errors.New("value out of range")

// Uint128 is an unsigned 128-bit integer held as two 64-bit words.
// The numeric value is Lo + Hi*2^64.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// MaxUint128 is 2^128 - 1.
var MaxUint128 = Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}

// U64 widens a uint64.
func U64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// Cmp returns -1, 0 or +1.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// Add returns u+v and whether the sum wrapped past 2^128.
func (u Uint128) Add(v Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Lo: lo, Hi: hi}, carry != 0
}

// Sub returns u-v and whether the difference borrowed below zero.
func (u Uint128) Sub(v Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, v.Hi, borrow)
	return Uint128{Lo: lo, Hi: hi}, borrow != 0
}

// MustAdd performs u+v and panics on overflow.
func (u Uint128) MustAdd(v Uint128) Uint128 {
	sum, overflow := u.Add(v)
	if overflow {
		panic("WIDE_ADD_OVERFLOW")
	}
	return sum
}

// MustSub performs u-v and panics on underflow.
func (u Uint128) MustSub(v Uint128) Uint128 {
	diff, underflow := u.Sub(v)
	if underflow {
		panic("WIDE_SUB_UNDERFLOW")
	}
	return diff
}

// mul64 returns u*m and whether the product overflowed.
func (u Uint128) mul64(m uint64) (Uint128, bool) {
	hiLo, lo := bits.Mul64(u.Lo, m)
	carryHi, hi := bits.Mul64(u.Hi, m)
	hi, carry := bits.Add64(hi, hiLo, 0)
	return Uint128{Lo: lo, Hi: hi}, carryHi != 0 || carry != 0
}

// divmod64 returns u/d and u%d. d must be non-zero.
func (u Uint128) divmod64(d uint64) (Uint128, uint64) {
	qHi := u.Hi / d
	rHi := u.Hi % d
	qLo, r := bits.Div64(rHi, u.Lo, d)
	return Uint128{Lo: qLo, Hi: qHi}, r
}

// 10^19 is the largest power of ten below 2^64.
const pow10_19 = 10000000000000000000

// String formats u in base 10.
func (u Uint128) String() string {
	if u.Hi == 0 {
		return strconv.FormatUint(u.Lo, 10)
	}
	q, r := u.divmod64(pow10_19)
	tail := strconv.FormatUint(r, 10)
	for len(tail) < 19 {
		tail = "0" + tail
	}
	return q.String() + tail
}

// Big converts u to a new big.Int.
func (u Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

// Uint128FromBig converts b, failing for negatives or values of 2^128 and above.
func Uint128FromBig(b *big.Int) (Uint128, error) {
	if b == nil {
		return Uint128{}, errors.New("nil big.Int")
	}
	if b.Sign() < 0 || b.BitLen() > 128 {
		return Uint128{}, ErrOutOfRange
	}
	lo := new(big.Int).And(b, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(b, 64)
	return Uint128{Lo: lo.Uint64(), Hi: hi.Uint64()}, nil
}

// MarshalText encodes u as a decimal string so JSON never rounds it.
func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText parses a decimal string.
func (u *Uint128) UnmarshalText(text []byte) error {
	v, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
