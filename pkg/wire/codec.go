package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"percolator_go/pkg/wide"
)

var (
	// ErrShortBuffer means a field extends past the end of the buffer.
	ErrShortBuffer = errors.New("buffer too short for field")
	// ErrKindMismatch means a value was written into a field of another kind.
	ErrKindMismatch = errors.New("value kind does not match field")
)

// Value is a decoded or to-be-encoded field value. All kinds are held in a
// 128-bit container; signed kinds keep their two's complement bits.
type Value struct {
	Kind Kind
	bits wide.Uint128
}

// Bool, U8, U16, U64, I64, U128 and I128 wrap Go values for Put and Build.
func Bool(b bool) Value {
	v := Value{Kind: KindBool}
	if b {
		v.bits.Lo = 1
	}
	return v
}

func U8(x uint8) Value {
	return Value{Kind: KindU8, bits: wide.U64(uint64(x))}
}

func U16(x uint16) Value {
	return Value{Kind: KindU16, bits: wide.U64(uint64(x))}
}

func U64(x uint64) Value {
	return Value{Kind: KindU64, bits: wide.U64(x)}
}

func I64(x int64) Value {
	return Value{Kind: KindI64, bits: wide.U64(uint64(x))}
}

func U128(x wide.Uint128) Value {
	return Value{Kind: KindU128, bits: x}
}

func I128(x wide.Int128) Value {
	return Value{Kind: KindI128, bits: x.Bits()}
}

func (v Value) Bool() bool {
	return v.bits.Lo != 0
}

func (v Value) Uint16() uint16 {
	return uint16(v.bits.Lo)
}

func (v Value) Uint64() uint64 {
	return v.bits.Lo
}

func (v Value) Int64() int64 {
	return int64(v.bits.Lo)
}

func (v Value) Uint128() wide.Uint128 {
	return v.bits
}

func (v Value) Int128() wide.Int128 {
	return wide.Int128FromBits(v.bits)
}

// Read decodes one field from buf.
func Read(buf []byte, f Field) (Value, error) {
	if f.Offset < 0 || f.End() > len(buf) {
		return Value{}, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrShortBuffer, f, f.End(), len(buf))
	}
	b := buf[f.Offset:f.End()]
	v := Value{Kind: f.Kind}
	switch f.Kind {
	case KindBool, KindU8:
		v.bits.Lo = uint64(b[0])
	case KindU16:
		v.bits.Lo = uint64(binary.LittleEndian.Uint16(b))
	case KindU64, KindI64:
		v.bits.Lo = binary.LittleEndian.Uint64(b)
	case KindU128, KindI128:
		v.bits.Lo = binary.LittleEndian.Uint64(b[0:8])
		v.bits.Hi = binary.LittleEndian.Uint64(b[8:16])
	default:
		return Value{}, fmt.Errorf("unknown kind in field %s", f)
	}
	return v, nil
}

// Put encodes v into buf at f. Nothing is written on error.
func Put(buf []byte, f Field, v Value) error {
	if v.Kind != f.Kind {
		return fmt.Errorf("%w: %s got %s", ErrKindMismatch, f, v.Kind)
	}
	if f.Offset < 0 || f.End() > len(buf) {
		return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrShortBuffer, f, f.End(), len(buf))
	}
	b := buf[f.Offset:f.End()]
	switch f.Kind {
	case KindBool:
		b[0] = 0
		if v.bits.Lo != 0 {
			b[0] = 1
		}
	case KindU8:
		b[0] = uint8(v.bits.Lo)
	case KindU16:
		binary.LittleEndian.PutUint16(b, uint16(v.bits.Lo))
	case KindU64, KindI64:
		binary.LittleEndian.PutUint64(b, v.bits.Lo)
	case KindU128, KindI128:
		binary.LittleEndian.PutUint64(b[0:8], v.bits.Lo)
		binary.LittleEndian.PutUint64(b[8:16], v.bits.Hi)
	default:
		return fmt.Errorf("unknown kind in field %s", f)
	}
	return nil
}

// Build writes a tagged payload: tag at offset 0, then values[i] at
// fields[i]. The buffer is sized to the layout extent. Every value must
// match its field's kind, so a value list in the wrong order fails instead
// of producing shifted bytes.
func Build(tag byte, fields []Field, values []Value) ([]byte, error) {
	if len(fields) != len(values) {
		return nil, fmt.Errorf("layout has %d fields, got %d values", len(fields), len(values))
	}
	size := Extent(fields)
	if size < 1 {
		size = 1
	}
	buf := make([]byte, size)
	buf[0] = tag
	for i, f := range fields {
		if f.Offset < 1 {
			return nil, fmt.Errorf("field %s overlaps the tag byte", f)
		}
		if err := Put(buf, f, values[i]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
