package mem

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// Store owns all evaluator-produced memory for one compilation unit: the
// allocation arena, the global-alloc table resolving AllocIDs, the statics
// table, and the evaluated-constant table. It implements Evaluator for
// graphs that were fully evaluated up front.
type Store struct {
	allocs   []Allocation  // index 0 reserved for NoAllocID
	globals  []GlobalAlloc // parallel to allocs
	interned map[[32]byte]AllocID

	statics []Static // index 0 reserved for NoStaticID

	consts []constEntry // index 0 reserved for NoConstRef
}

type constEntry struct {
	val Value
	err *EvalError
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		allocs:   make([]Allocation, 1, 64),
		globals:  make([]GlobalAlloc, 1, 64),
		interned: make(map[[32]byte]AllocID, 64),
		statics:  make([]Static, 1, 8),
		consts:   make([]constEntry, 1, 16),
	}
}

func (s *Store) newAllocID(a Allocation, g GlobalAlloc) AllocID {
	value, err := safecast.Conv[uint32](len(s.allocs))
	if err != nil {
		panic(fmt.Errorf("allocation arena overflow: %w", err))
	}
	id := AllocID(value)
	s.allocs = append(s.allocs, a)
	s.globals = append(s.globals, g)
	return id
}

// InternAlloc returns a stable AllocID for a memory allocation, keyed by
// content, mutability and provenance. Two value-equal allocations intern to
// the same ID, which is what makes deduplicated materialization possible.
func (s *Store) InternAlloc(a Allocation) AllocID {
	key := allocFingerprint(&a)
	if id, ok := s.interned[key]; ok {
		return id
	}
	id := s.newAllocID(a, GlobalAlloc{Kind: GlobalMemory})
	s.interned[key] = id
	return id
}

// NewAnonAlloc registers a memory allocation under a fresh ID without
// interning. Used for locally synthesized buffers (the scalar-as-bytes
// fallback) that must stay unique per call site.
func (s *Store) NewAnonAlloc(a Allocation) AllocID {
	return s.newAllocID(a, GlobalAlloc{Kind: GlobalMemory})
}

// ReserveAlloc registers an empty memory allocation under a fresh ID, to be
// filled in later with FillAlloc. Deserialized graphs need this: a cyclic
// graph has no insertion order in which every provenance target already
// exists.
func (s *Store) ReserveAlloc() AllocID {
	return s.newAllocID(Allocation{}, GlobalAlloc{Kind: GlobalMemory})
}

// FillAlloc supplies the contents of a reserved allocation.
func (s *Store) FillAlloc(id AllocID, a Allocation) error {
	if !id.IsValid() || int(id) >= len(s.allocs) || s.globals[id].Kind != GlobalMemory {
		return fmt.Errorf("cannot fill allocation %d: not a reserved memory allocation", id)
	}
	s.allocs[id] = a
	return nil
}

// RegisterFunction returns an AllocID whose address resolves to the named
// imported function.
func (s *Store) RegisterFunction(name string) AllocID {
	return s.newAllocID(Allocation{}, GlobalAlloc{Kind: GlobalFunction, FuncName: name})
}

// RegisterStatic records a static item and returns both its StaticID and
// the AllocID under which its address appears inside other values.
func (s *Store) RegisterStatic(st Static) (StaticID, AllocID) {
	value, err := safecast.Conv[uint32](len(s.statics))
	if err != nil {
		panic(fmt.Errorf("statics arena overflow: %w", err))
	}
	sid := StaticID(value)
	s.statics = append(s.statics, st)
	aid := s.newAllocID(Allocation{}, GlobalAlloc{Kind: GlobalStatic, Static: sid})
	return sid, aid
}

// Alloc returns the allocation bytes for a GlobalMemory ID.
func (s *Store) Alloc(id AllocID) (*Allocation, bool) {
	if !id.IsValid() || int(id) >= len(s.allocs) {
		return nil, false
	}
	if s.globals[id].Kind != GlobalMemory {
		return nil, false
	}
	return &s.allocs[id], true
}

// Global resolves an AllocID to its kind.
func (s *Store) Global(id AllocID) (GlobalAlloc, bool) {
	if !id.IsValid() || int(id) >= len(s.globals) {
		return GlobalAlloc{}, false
	}
	return s.globals[id], true
}

// StaticOf returns the static record or nil for an invalid ID.
func (s *Store) StaticOf(id StaticID) *Static {
	if !id.IsValid() || int(id) >= len(s.statics) {
		return nil
	}
	return &s.statics[id]
}

// AddConst records an evaluated constant and returns its reference.
func (s *Store) AddConst(v Value) ConstRef {
	value, err := safecast.Conv[uint32](len(s.consts))
	if err != nil {
		panic(fmt.Errorf("constant table overflow: %w", err))
	}
	s.consts = append(s.consts, constEntry{val: v})
	return ConstRef(value)
}

// AddErrConst records a constant whose evaluation failed upstream.
func (s *Store) AddErrConst(kind EvalErrorKind) ConstRef {
	value, err := safecast.Conv[uint32](len(s.consts))
	if err != nil {
		panic(fmt.Errorf("constant table overflow: %w", err))
	}
	s.consts = append(s.consts, constEntry{err: &EvalError{Kind: kind}})
	return ConstRef(value)
}

// Resolve implements Evaluator.
func (s *Store) Resolve(ref ConstRef) (Value, error) {
	if !ref.IsValid() || int(ref) >= len(s.consts) {
		return Value{}, fmt.Errorf("unknown constant reference %d", ref)
	}
	entry := s.consts[ref]
	if entry.err != nil {
		return Value{}, entry.err
	}
	return entry.val, nil
}

// EvalStaticInitializer implements Evaluator.
func (s *Store) EvalStaticInitializer(id StaticID) (AllocID, error) {
	st := s.StaticOf(id)
	if st == nil {
		return NoAllocID, fmt.Errorf("unknown static %d", id)
	}
	if st.InitErr != nil {
		return NoAllocID, st.InitErr
	}
	if !st.InitAlloc.IsValid() {
		return NoAllocID, fmt.Errorf("static %s has no initializer in this unit", st.Name)
	}
	return st.InitAlloc, nil
}

func allocFingerprint(a *Allocation) [32]byte {
	h := sha256.New()
	h.Write(a.Bytes)
	var meta [10]byte
	binary.LittleEndian.PutUint64(meta[:8], a.Align)
	meta[8] = byte(a.Mutability)
	meta[9] = byte(len(a.Provenance))
	h.Write(meta[:])
	var rel [12]byte
	for _, p := range a.Provenance {
		binary.LittleEndian.PutUint32(rel[:4], p.Offset)
		binary.LittleEndian.PutUint64(rel[4:], uint64(p.Target))
		h.Write(rel[:])
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
