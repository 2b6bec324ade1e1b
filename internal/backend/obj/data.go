package obj

// RelocKind discriminates relocation targets. Closed set: data objects and
// imported functions only.
type RelocKind uint8

const (
	RelocData RelocKind = iota
	RelocFunc
)

// Reloc is one symbolic relocation inside a data object: the pointer-sized
// region at Offset must hold the target's address plus Addend at link time.
// Function targets never carry an addend.
type Reloc struct {
	Offset uint32
	Kind   RelocKind
	Data   DataID // RelocData
	Func   FuncID // RelocFunc
	Addend int64  // RelocData only
}

// DataDesc is the full definition of one data object: logical bytes plus
// symbolic relocations. The module backend, not this package, turns it into
// object-file bytes.
type DataDesc struct {
	Align   uint64
	Bytes   []byte
	Relocs  []Reloc
	Section string // segment/section hint, "" for the default placement
}
