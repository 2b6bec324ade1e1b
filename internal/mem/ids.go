package mem

// AllocID identifies one evaluator-produced memory block. Two equal IDs
// denote the same block; the ID is stable across use-sites, so a block
// referenced twice is materialized once.
type AllocID uint32

// NoAllocID is the invalid sentinel.
const NoAllocID AllocID = 0

func (id AllocID) IsValid() bool { return id != NoAllocID }

// StaticID identifies one source-level static item. Distinct from AllocID:
// statics carry linkage/visibility/section/thread-local attributes that
// anonymous allocations lack.
type StaticID uint32

const NoStaticID StaticID = 0

func (id StaticID) IsValid() bool { return id != NoStaticID }

// ConstRef references one not-yet-evaluated constant at the evaluator
// boundary.
type ConstRef uint32

const NoConstRef ConstRef = 0

func (r ConstRef) IsValid() bool { return r != NoConstRef }
