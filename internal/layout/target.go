package layout

import (
	"encoding/binary"
	"fmt"
)

// Endianness of a target's data layout.
type Endian uint8

const (
	Little Endian = iota
	Big
)

func (e Endian) String() string {
	if e == Big {
		return "big"
	}
	return "little"
}

// ByteOrder returns the encoding/binary order for e.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Target describes the data layout of an ABI target triple: pointer
// properties, byte order, and the register widths that decide whether a
// scalar constant has a native in-register form.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
	Endian   Endian

	IntRegBits    int // widest general-purpose register
	VectorRegBits int // widest vector register; 0 when the target has none
}

// X86_64LinuxGNU is the default target.
func X86_64LinuxGNU() Target {
	return Target{
		Triple:        "x86_64-linux-gnu",
		PtrSize:       8,
		PtrAlign:      8,
		Endian:        Little,
		IntRegBits:    64,
		VectorRegBits: 128,
	}
}

// AArch64LinuxGNU returns the layout of the 64-bit ARM Linux target.
func AArch64LinuxGNU() Target {
	return Target{
		Triple:        "aarch64-linux-gnu",
		PtrSize:       8,
		PtrAlign:      8,
		Endian:        Little,
		IntRegBits:    64,
		VectorRegBits: 128,
	}
}

// NativeScalar reports whether the target can hold a scalar of the given
// layout in a register, i.e. whether an immediate representation exists.
// Scalars without a native form must be materialized as byte buffers.
func (t Target) NativeScalar(l TypeLayout) bool {
	switch l.Class {
	case ClassNone:
		return false
	case ClassPointer:
		return l.Bits <= t.PtrSize*8
	case ClassInt:
		return l.Bits <= t.IntRegBits
	case ClassFloat:
		// f32/f64 only; extended floats have no register form.
		return l.Bits <= 64
	case ClassVector:
		return t.VectorRegBits > 0 && l.Bits <= t.VectorRegBits
	}
	return false
}

// Validate checks the target description for obvious nonsense.
func (t Target) Validate() error {
	if t.Triple == "" {
		return fmt.Errorf("target has no triple")
	}
	switch t.PtrSize {
	case 2, 4, 8:
	default:
		return fmt.Errorf("target %s: unsupported pointer size %d", t.Triple, t.PtrSize)
	}
	if t.PtrAlign <= 0 {
		return fmt.Errorf("target %s: bad pointer alignment %d", t.Triple, t.PtrAlign)
	}
	if t.IntRegBits < t.PtrSize*8 {
		return fmt.Errorf("target %s: int registers narrower than pointers", t.Triple)
	}
	return nil
}
