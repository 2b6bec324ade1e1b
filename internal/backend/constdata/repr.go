package constdata

import (
	"kiln/internal/backend/obj"
	"kiln/internal/layout"
)

// AddrKind discriminates the base of a symbolic address.
type AddrKind uint8

const (
	// AddrData: address of a data object.
	AddrData AddrKind = iota
	// AddrFunc: address of an imported function.
	AddrFunc
	// AddrTLS: per-thread address of a thread-local data object; not fixed
	// at link time.
	AddrTLS
)

// Addr is a symbolic address the function-body code generator turns into an
// address computation: a base object plus a byte offset.
type Addr struct {
	Kind   AddrKind
	Data   obj.DataID // AddrData, AddrTLS
	Func   obj.FuncID // AddrFunc
	Offset int64
}

// ReprKind discriminates Repr.
type ReprKind uint8

const (
	// ReprDangling: a zero-sized value; no storage, alignment only.
	ReprDangling ReprKind = iota
	// ReprImmediate: a scalar held directly in a register.
	ReprImmediate
	// ReprAddress: a scalar pointer; the register holds a symbolic address.
	ReprAddress
	// ReprByRef: the value lives in memory at Addr.
	ReprByRef
	// ReprPair: a fat pointer: Addr plus Len.
	ReprPair
)

// Repr is the classified representation of a constant at a use-site: the
// value either fits in a register (immediate/address), lives behind a data
// object (by-ref), or is a pointer+length pair. Module-bound side effects
// (declared objects, queued definitions) have already been applied when a
// Repr is returned.
type Repr struct {
	Kind   ReprKind
	Layout layout.TypeLayout
	Bits   []byte // ReprImmediate: little-endian scalar bits
	Addr   Addr   // ReprAddress, ReprByRef, ReprPair
	Len    uint64 // ReprPair
}

func dangling(ly layout.TypeLayout) Repr {
	return Repr{Kind: ReprDangling, Layout: ly}
}

func immediate(bits []byte, ly layout.TypeLayout) Repr {
	return Repr{Kind: ReprImmediate, Layout: ly, Bits: bits}
}

func addressOf(a Addr, ly layout.TypeLayout) Repr {
	return Repr{Kind: ReprAddress, Layout: ly, Addr: a}
}

func byRef(a Addr, ly layout.TypeLayout) Repr {
	return Repr{Kind: ReprByRef, Layout: ly, Addr: a}
}

func pair(a Addr, length uint64, ly layout.TypeLayout) Repr {
	return Repr{Kind: ReprPair, Layout: ly, Addr: a, Len: length}
}
