package constdata

import (
	"kiln/internal/backend/obj"
	"kiln/internal/diag"
	"kiln/internal/layout"
	"kiln/internal/mem"
)

// Pass bundles the per-unit collaborators threaded through every entry
// point: the evaluator-side store, the destination module, the target data
// layout, and the diagnostic sink. One Pass belongs to one compilation
// unit's codegen; it is never shared between goroutines.
type Pass struct {
	Store    *mem.Store
	Eval     mem.Evaluator
	Target   layout.Target
	Module   obj.Module
	Reporter diag.Reporter

	// Cx is the use-site context for function-body codegen. Finalize drains
	// it; CodegenStatic uses a private context per request instead.
	Cx *ConstantCx
}

// NewPass creates a Pass with a fresh use-site context.
func NewPass(store *mem.Store, eval mem.Evaluator, target layout.Target, module obj.Module, rep diag.Reporter) *Pass {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Pass{
		Store:    store,
		Eval:     eval,
		Target:   target,
		Module:   module,
		Reporter: rep,
		Cx:       NewConstantCx(),
	}
}

// Finalize drains the use-site context, defining every enqueued memory
// object exactly once. Call after a function body's constants have been
// classified; repeated calls on the same Pass are safe, identities written
// by an earlier drain are skipped.
func (p *Pass) Finalize() error {
	return p.Cx.finalize(p)
}

type todoKind uint8

const (
	todoAlloc todoKind = iota
	todoStatic
)

type todoItem struct {
	kind   todoKind
	alloc  mem.AllocID
	static mem.StaticID
}

// ConstantCx tracks the in-flight state of one materialization run: the
// pending work queue, the identities already written, and the dedup table
// mapping allocation identity to its declared data object. "Declared, not
// yet defined" is a valid transient state; it is what lets cyclic graphs
// terminate.
type ConstantCx struct {
	todo       []todoItem
	done       map[obj.DataID]struct{}
	anonAllocs map[mem.AllocID]obj.DataID
}

func NewConstantCx() *ConstantCx {
	return &ConstantCx{
		done:       make(map[obj.DataID]struct{}, 16),
		anonAllocs: make(map[mem.AllocID]obj.DataID, 16),
	}
}

func (cx *ConstantCx) pushAlloc(id mem.AllocID) {
	cx.todo = append(cx.todo, todoItem{kind: todoAlloc, alloc: id})
}

func (cx *ConstantCx) pushStatic(id mem.StaticID) {
	cx.todo = append(cx.todo, todoItem{kind: todoStatic, static: id})
}

// dataIDForAlloc declares (once) the anonymous data object backing an
// allocation and returns its handle. The dedup table is consulted before
// any declaration; it is what prevents duplicate objects and breaks cycles.
func (cx *ConstantCx) dataIDForAlloc(p *Pass, id mem.AllocID, mut mem.Mutability) (obj.DataID, error) {
	if dataID, ok := cx.anonAllocs[id]; ok {
		return dataID, nil
	}
	dataID, err := p.Module.DeclareAnonymousData(mut == mem.Mutable, false)
	if err != nil {
		return obj.NoDataID, err
	}
	cx.anonAllocs[id] = dataID
	return dataID, nil
}

// finalize drains the queue. The done set and dedup table are kept: the
// context lives as long as its pass, and identities written by an earlier
// drain must stay no-ops when re-enqueued by a later one.
func (cx *ConstantCx) finalize(p *Pass) error {
	return cx.defineAll(p)
}
