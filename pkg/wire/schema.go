// Package wire describes fixed-offset little-endian layouts and reads or
// writes them field by field. Both the engine-state decoder and the
// instruction encoder go through this package so that every offset and
// width lives in a table instead of in hand-written slice arithmetic.
package wire

import "fmt"

// Kind is the on-wire encoding of a field.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindU8
	KindU16
	KindU64
	KindI64
	KindU128
	KindI128
)

// Width returns the encoded size in bytes.
func (k Kind) Width() int {
	switch k {
	case KindBool, KindU8:
		return 1
	case KindU16:
		return 2
	case KindU64, KindI64:
		return 8
	case KindU128, KindI128:
		return 16
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindU128:
		return "u128"
	case KindI128:
		return "i128"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Field is one entry of a layout: a name, a byte offset and an encoding.
type Field struct {
	Name   string
	Offset int
	Kind   Kind
}

// End is the offset one past the last byte of the field.
func (f Field) End() int {
	return f.Offset + f.Kind.Width()
}

func (f Field) String() string {
	return fmt.Sprintf("%s@%d:%s", f.Name, f.Offset, f.Kind)
}

// Sequential lays fields out back to back starting at offset start.
func Sequential(start int, specs ...Spec) []Field {
	fields := make([]Field, 0, len(specs))
	off := start
	for _, s := range specs {
		fields = append(fields, Field{Name: s.Name, Offset: off, Kind: s.Kind})
		off += s.Kind.Width()
	}
	return fields
}

// Spec names a field before it has an offset.
type Spec struct {
	Name string
	Kind Kind
}

// Extent returns the largest End over fields, i.e. the minimum buffer size
// that holds all of them.
func Extent(fields []Field) int {
	n := 0
	for _, f := range fields {
		if e := f.End(); e > n {
			n = e
		}
	}
	return n
}

// CheckDisjoint reports the first pair of overlapping fields.
func CheckDisjoint(fields []Field) error {
	for i := range fields {
		for j := i + 1; j < len(fields); j++ {
			a, b := fields[i], fields[j]
			if a.Offset < b.End() && b.Offset < a.End() {
				return fmt.Errorf("fields %s and %s overlap", a, b)
			}
		}
	}
	return nil
}
