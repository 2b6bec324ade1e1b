package mem

import (
	"fmt"

	"fortio.org/safecast"

	"kiln/internal/layout"
)

// Mutability of an allocation's backing memory.
type Mutability uint8

const (
	Immutable Mutability = iota
	Mutable
)

// Provenance tags one pointer-sized sub-region of an allocation's bytes as a
// relocation: at link time the region must hold the address of Target plus
// the addend already stored in the raw bytes.
type Provenance struct {
	Offset uint32
	Target AllocID
}

// Allocation is one block of evaluator-produced memory: raw bytes plus the
// provenance of every embedded pointer.
type Allocation struct {
	Bytes      []byte
	Align      uint64
	Mutability Mutability
	Provenance []Provenance // sorted by Offset
}

func (a *Allocation) Len() int {
	return len(a.Bytes)
}

// ReadPointer decodes the pointer-sized integer stored at offset in the raw
// bytes, using the target's byte order. For relocated regions this integer
// is the addend.
func (a *Allocation) ReadPointer(t layout.Target, offset uint32) (uint64, error) {
	start, err := safecast.Conv[int](offset)
	if err != nil {
		return 0, err
	}
	end := start + t.PtrSize
	if end > len(a.Bytes) {
		return 0, fmt.Errorf("pointer read at %d..%d out of range (allocation is %d bytes)", start, end, len(a.Bytes))
	}
	raw := a.Bytes[start:end]
	switch t.PtrSize {
	case 2:
		return uint64(t.Endian.ByteOrder().Uint16(raw)), nil
	case 4:
		return uint64(t.Endian.ByteOrder().Uint32(raw)), nil
	case 8:
		return t.Endian.ByteOrder().Uint64(raw), nil
	default:
		return 0, fmt.Errorf("unsupported pointer size %d", t.PtrSize)
	}
}

// WritePointer encodes value at offset using the target's byte order. Used
// when the evaluator (or a test) builds allocations by hand.
func (a *Allocation) WritePointer(t layout.Target, offset uint32, value uint64) error {
	start, err := safecast.Conv[int](offset)
	if err != nil {
		return err
	}
	end := start + t.PtrSize
	if end > len(a.Bytes) {
		return fmt.Errorf("pointer write at %d..%d out of range (allocation is %d bytes)", start, end, len(a.Bytes))
	}
	raw := a.Bytes[start:end]
	switch t.PtrSize {
	case 2:
		v16, err := safecast.Conv[uint16](value)
		if err != nil {
			return err
		}
		t.Endian.ByteOrder().PutUint16(raw, v16)
	case 4:
		v32, err := safecast.Conv[uint32](value)
		if err != nil {
			return err
		}
		t.Endian.ByteOrder().PutUint32(raw, v32)
	case 8:
		t.Endian.ByteOrder().PutUint64(raw, value)
	default:
		return fmt.Errorf("unsupported pointer size %d", t.PtrSize)
	}
	return nil
}
