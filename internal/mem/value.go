package mem

import (
	"fmt"

	"kiln/internal/layout"
)

// Pointer is a scalar pointer value: a target allocation plus a byte offset
// into it.
type Pointer struct {
	Alloc  AllocID
	Offset uint64
}

// ScalarKind discriminates Scalar.
type ScalarKind uint8

const (
	// ScalarInt is a plain bit pattern (integers, floats, vectors).
	ScalarInt ScalarKind = iota
	// ScalarPtr is a pointer into an allocation.
	ScalarPtr
)

// Scalar is a single evaluated scalar value.
//
// Int bits are stored little-endian regardless of target; materialization
// re-encodes them in the target's byte order. The slice length matches the
// value's layout size, which for wide vector constants can exceed 8 bytes.
type Scalar struct {
	Kind ScalarKind
	Bits []byte  // ScalarInt
	Ptr  Pointer // ScalarPtr
}

// IntScalar builds a ScalarInt from a uint64, sized to the given byte width.
func IntScalar(v uint64, size int) Scalar {
	bits := make([]byte, size)
	for i := 0; i < size && i < 8; i++ {
		bits[i] = byte(v >> (8 * i))
	}
	return Scalar{Kind: ScalarInt, Bits: bits}
}

// PtrScalar builds a ScalarPtr.
func PtrScalar(alloc AllocID, offset uint64) Scalar {
	return Scalar{Kind: ScalarPtr, Ptr: Pointer{Alloc: alloc, Offset: offset}}
}

// Uint64 decodes the low 64 bits of a ScalarInt.
func (s Scalar) Uint64() (uint64, error) {
	if s.Kind != ScalarInt {
		return 0, fmt.Errorf("scalar is not an int")
	}
	var v uint64
	for i := 0; i < len(s.Bits) && i < 8; i++ {
		v |= uint64(s.Bits[i]) << (8 * i)
	}
	return v, nil
}

// EncodeBits writes the scalar's bit pattern into dst in the target's byte
// order. len(dst) must equal len(s.Bits).
func (s Scalar) EncodeBits(dst []byte, t layout.Target) error {
	if s.Kind != ScalarInt {
		return fmt.Errorf("cannot encode a pointer scalar as raw bits")
	}
	if len(dst) != len(s.Bits) {
		return fmt.Errorf("bit width mismatch: scalar has %d bytes, destination %d", len(s.Bits), len(dst))
	}
	if t.Endian == layout.Big {
		for i, b := range s.Bits {
			dst[len(dst)-1-i] = b
		}
		return nil
	}
	copy(dst, s.Bits)
	return nil
}

// ValueKind discriminates Value.
type ValueKind uint8

const (
	// ValueScalar is a single scalar (possibly a pointer).
	ValueScalar ValueKind = iota
	// ValueByRef is a view into an allocation starting at Offset.
	ValueByRef
	// ValueSlice is a pointer+length pair over Start..End of an allocation.
	ValueSlice
)

// Value is one fully evaluated constant value, the engine's input.
// The meaning of the fields depends on Kind; all other fields are zero.
type Value struct {
	Kind   ValueKind
	Scalar Scalar  // ValueScalar
	Alloc  AllocID // ValueByRef, ValueSlice
	Offset uint64  // ValueByRef
	Start  uint64  // ValueSlice
	End    uint64  // ValueSlice
}

func ScalarValue(s Scalar) Value {
	return Value{Kind: ValueScalar, Scalar: s}
}

func ByRefValue(alloc AllocID, offset uint64) Value {
	return Value{Kind: ValueByRef, Alloc: alloc, Offset: offset}
}

func SliceValue(alloc AllocID, start, end uint64) Value {
	return Value{Kind: ValueSlice, Alloc: alloc, Start: start, End: end}
}
