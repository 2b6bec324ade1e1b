package constdata

import (
	"errors"
	"sort"

	"fortio.org/safecast"

	"kiln/internal/backend/obj"
	"kiln/internal/mem"
	"kiln/internal/source"
)

// defineAll drains the work queue to a fixed point. Each popped item is
// skipped if already done, otherwise its bytes are materialized, its
// embedded pointers resolved to symbolic relocations, and the result
// written to the module exactly once. Relocation targets may still be in
// the queue; they are declared here and defined when their own turn comes.
func (cx *ConstantCx) defineAll(p *Pass) error {
	for len(cx.todo) > 0 {
		item := cx.todo[len(cx.todo)-1]
		cx.todo = cx.todo[:len(cx.todo)-1]

		var (
			dataID  obj.DataID
			alloc   *mem.Allocation
			section string
			span    source.Span
		)
		switch item.kind {
		case todoAlloc:
			a, ok := p.Store.Alloc(item.alloc)
			if !ok {
				return malformed(source.Span{}, "queued allocation %d is not plain memory", item.alloc)
			}
			id, err := cx.dataIDForAlloc(p, item.alloc, a.Mutability)
			if err != nil {
				return err
			}
			dataID, alloc = id, a

		case todoStatic:
			st := p.Store.StaticOf(item.static)
			if st == nil {
				return malformed(source.Span{}, "queued static %d does not exist", item.static)
			}
			section, span = st.Section, st.Span
			initAlloc, err := p.Eval.EvalStaticInitializer(item.static)
			if err != nil {
				var evalErr *mem.EvalError
				if errors.As(err, &evalErr) {
					if evalErr.Kind == mem.EvalTooGeneric {
						return polymorphic(st.Span, evalErr.Error())
					}
					return erroneous(st.Span, "initializer of "+st.Name)
				}
				return err
			}
			a, ok := p.Store.Alloc(initAlloc)
			if !ok {
				return malformed(st.Span, "initializer of %s is not plain memory", st.Name)
			}
			id, err := staticDataID(p, item.static, true)
			if err != nil {
				return err
			}
			dataID, alloc = id, a
		}

		if _, ok := cx.done[dataID]; ok {
			continue
		}

		desc, err := cx.materialize(p, dataID, alloc, section, span)
		if err != nil {
			return err
		}
		if err := p.Module.DefineData(dataID, desc); err != nil {
			// Duplicate definitions are tolerated only for the weak
			// indirection objects, which never pass through this loop.
			return malformed(span, "define of data object %d failed: %v", dataID, err)
		}
		cx.done[dataID] = struct{}{}
	}
	return nil
}

// materialize turns one allocation into a definable data object: a byte
// copy plus a resolved relocation for every tagged pointer-sized region.
func (cx *ConstantCx) materialize(p *Pass, dataID obj.DataID, alloc *mem.Allocation, section string, span source.Span) (*obj.DataDesc, error) {
	desc := &obj.DataDesc{
		Align:   alloc.Align,
		Bytes:   append([]byte(nil), alloc.Bytes...),
		Section: section,
	}
	if desc.Align == 0 {
		desc.Align = 1
	}

	provs := alloc.Provenance
	if !sort.SliceIsSorted(provs, func(i, j int) bool { return provs[i].Offset < provs[j].Offset }) {
		provs = append([]mem.Provenance(nil), provs...)
		sort.Slice(provs, func(i, j int) bool { return provs[i].Offset < provs[j].Offset })
	}

	for _, prov := range provs {
		reloc, err := cx.resolveRelocation(p, dataID, alloc, prov, span)
		if err != nil {
			return nil, err
		}
		desc.Relocs = append(desc.Relocs, reloc)
	}
	return desc, nil
}

// resolveRelocation resolves one tagged pointer-sized region to a
// relocation target and addend. The addend is the integer stored in the raw
// bytes at the region's offset; function targets must store exactly zero.
func (cx *ConstantCx) resolveRelocation(p *Pass, dataID obj.DataID, alloc *mem.Allocation, prov mem.Provenance, span source.Span) (obj.Reloc, error) {
	rawAddend, err := alloc.ReadPointer(p.Target, prov.Offset)
	if err != nil {
		return obj.Reloc{}, malformed(span, "relocation at offset %d: %v", prov.Offset, err)
	}

	target, ok := p.Store.Global(prov.Target)
	if !ok {
		return obj.Reloc{}, malformed(span, "relocation target %d does not exist", prov.Target)
	}

	switch target.Kind {
	case mem.GlobalFunction:
		if rawAddend != 0 {
			return obj.Reloc{}, malformed(span,
				"relocation to function %s carries addend %d; function relocations take no addend",
				target.FuncName, rawAddend)
		}
		funcID, err := p.Module.DeclareFunction(target.FuncName)
		if err != nil {
			return obj.Reloc{}, err
		}
		return obj.Reloc{Offset: prov.Offset, Kind: obj.RelocFunc, Func: funcID}, nil

	case mem.GlobalMemory:
		targetAlloc, ok := p.Store.Alloc(prov.Target)
		if !ok {
			return obj.Reloc{}, malformed(span, "relocation target %d is not plain memory", prov.Target)
		}
		cx.pushAlloc(prov.Target)
		targetID, err := cx.dataIDForAlloc(p, prov.Target, targetAlloc.Mutability)
		if err != nil {
			return obj.Reloc{}, err
		}
		addend, err := safecast.Conv[int64](rawAddend)
		if err != nil {
			return obj.Reloc{}, malformed(span, "relocation addend %d overflows: %v", rawAddend, err)
		}
		return obj.Reloc{Offset: prov.Offset, Kind: obj.RelocData, Data: targetID, Addend: addend}, nil

	case mem.GlobalStatic:
		st := p.Store.StaticOf(target.Static)
		if st == nil {
			return obj.Reloc{}, malformed(span, "relocation target static %d does not exist", target.Static)
		}
		if st.ThreadLocal {
			// A thread-local address is not fixed at link time, so static
			// memory cannot hold it.
			return obj.Reloc{}, tlsCapture(span.Cover(st.Span), "data object "+describeObject(p, dataID)+" holds the address of thread-local "+st.Name)
		}
		// Declare only. Definition of a static is driven by its own
		// top-level codegen request; enqueueing it here would duplicate it
		// across the units that reference it.
		targetID, err := staticDataID(p, target.Static, false)
		if err != nil {
			return obj.Reloc{}, err
		}
		addend, err := safecast.Conv[int64](rawAddend)
		if err != nil {
			return obj.Reloc{}, malformed(span, "relocation addend %d overflows: %v", rawAddend, err)
		}
		return obj.Reloc{Offset: prov.Offset, Kind: obj.RelocData, Data: targetID, Addend: addend}, nil
	}
	return obj.Reloc{}, malformed(span, "unknown relocation target kind %d", target.Kind)
}

func describeObject(p *Pass, dataID obj.DataID) string {
	type namer interface{ DataName(obj.DataID) string }
	if m, ok := p.Module.(namer); ok {
		if name := m.DataName(dataID); name != "" {
			return name
		}
	}
	return "<anonymous>"
}
