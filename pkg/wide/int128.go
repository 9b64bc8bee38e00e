package wide

import (
	"errors"
	"math/big"
	"math/bits"
)

// Int128 is a signed 128-bit integer in two's complement, held as two words.
// The numeric value is Lo + Hi*2^64 with Hi carrying the sign.
type Int128 struct {
	Lo uint64
	Hi int64
}

var (
	// MinInt128 is -2^127.
	MinInt128 = Int128{Lo: 0, Hi: -1 << 63}
	// MaxInt128 is 2^127 - 1.
	MaxInt128 = Int128{Lo: ^uint64(0), Hi: 1<<63 - 1}

	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// I64 sign-extends an int64.
func I64(v int64) Int128 {
	return Int128{Lo: uint64(v), Hi: v >> 63}
}

// Int128FromBits reinterprets the raw words of u as two's complement.
func Int128FromBits(u Uint128) Int128 {
	return Int128{Lo: u.Lo, Hi: int64(u.Hi)}
}

// Bits returns the raw two's complement words.
func (i Int128) Bits() Uint128 {
	return Uint128{Lo: i.Lo, Hi: uint64(i.Hi)}
}

// Sign returns -1, 0 or +1.
func (i Int128) Sign() int {
	switch {
	case i.Hi < 0:
		return -1
	case i.Hi == 0 && i.Lo == 0:
		return 0
	}
	return 1
}

// Cmp returns -1, 0 or +1.
func (i Int128) Cmp(j Int128) int {
	switch {
	case i.Hi < j.Hi:
		return -1
	case i.Hi > j.Hi:
		return 1
	case i.Lo < j.Lo:
		return -1
	case i.Lo > j.Lo:
		return 1
	}
	return 0
}

// Neg returns -i. Negating MinInt128 overflows.
func (i Int128) Neg() (Int128, bool) {
	if i == MinInt128 {
		return i, true
	}
	lo, borrow := bits.Sub64(0, i.Lo, 0)
	hi, _ := bits.Sub64(0, uint64(i.Hi), borrow)
	return Int128{Lo: lo, Hi: int64(hi)}, false
}

// Add returns i+j and whether the signed sum overflowed.
func (i Int128) Add(j Int128) (Int128, bool) {
	sum, _ := i.Bits().Add(j.Bits())
	r := Int128FromBits(sum)
	// Overflow iff both operands share a sign the result does not.
	overflow := (i.Hi < 0) == (j.Hi < 0) && (r.Hi < 0) != (i.Hi < 0)
	return r, overflow
}

// Abs returns |i| as an unsigned value; |MinInt128| = 2^127 fits.
func (i Int128) Abs() Uint128 {
	if i.Hi >= 0 {
		return i.Bits()
	}
	lo, borrow := bits.Sub64(0, i.Lo, 0)
	hi, _ := bits.Sub64(0, uint64(i.Hi), borrow)
	return Uint128{Lo: lo, Hi: hi}
}

// String formats i in base 10.
func (i Int128) String() string {
	if i.Hi < 0 {
		return "-" + i.Abs().String()
	}
	return i.Bits().String()
}

// Big converts i to a new big.Int.
func (i Int128) Big() *big.Int {
	b := i.Bits().Big()
	if i.Hi < 0 {
		b.Sub(b, two128)
	}
	return b
}

// Int128FromBig converts b, failing outside [-2^127, 2^127).
func Int128FromBig(b *big.Int) (Int128, error) {
	if b == nil {
		return Int128{}, errors.New("nil big.Int")
	}
	if b.Cmp(MinInt128.Big()) < 0 || b.Cmp(MaxInt128.Big()) > 0 {
		return Int128{}, ErrOutOfRange
	}
	v := new(big.Int).Set(b)
	if v.Sign() < 0 {
		v.Add(v, two128)
	}
	u, err := Uint128FromBig(v)
	if err != nil {
		return Int128{}, err
	}
	return Int128FromBits(u), nil
}

// MarshalText encodes i as a decimal string.
func (i Int128) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText parses a decimal string.
func (i *Int128) UnmarshalText(text []byte) error {
	v, err := ParseInt128(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
