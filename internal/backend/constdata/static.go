package constdata

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"kiln/internal/backend/obj"
	"kiln/internal/layout"
	"kiln/internal/mem"
	"kiln/internal/source"
)

// CodegenStatic materializes one static this unit defines: its initializer
// allocation and, transitively, every anonymous allocation it references.
// Each request runs on a private context, so cross-invocation deduplication
// happens only through the module's symbol table (statics are keyed by
// their mangled name).
func (p *Pass) CodegenStatic(id mem.StaticID) error {
	cx := NewConstantCx()
	cx.pushStatic(id)
	sub := *p
	sub.Cx = cx
	return cx.finalize(&sub)
}

// CodegenStaticRef classifies a reference to a non-thread-local static:
// the value lives in memory at the static's symbol.
func CodegenStaticRef(p *Pass, id mem.StaticID, ly layout.TypeLayout) (Repr, error) {
	st := p.Store.StaticOf(id)
	if st == nil {
		return Repr{}, malformed(source.Span{}, "unknown static %d", id)
	}
	if st.ThreadLocal {
		// The frontend lowers thread-local reads to a dedicated operation;
		// reaching here with a TLS static is its bug, not the user's.
		return Repr{}, malformed(st.Span, "thread-local static %s referenced without a thread-local access", st.Name)
	}
	dataID, err := staticDataID(p, id, false)
	if err != nil {
		return Repr{}, err
	}
	return byRef(Addr{Kind: AddrData, Data: dataID}, ly), nil
}

// CodegenTLSRef classifies a thread-local reference: the address is
// computed per thread at run time, so the representation is a TLS address,
// never a plain data address.
func CodegenTLSRef(p *Pass, id mem.StaticID, ly layout.TypeLayout) (Repr, error) {
	st := p.Store.StaticOf(id)
	if st == nil {
		return Repr{}, malformed(source.Span{}, "unknown static %d", id)
	}
	dataID, err := staticDataID(p, id, false)
	if err != nil {
		return Repr{}, err
	}
	return addressOf(Addr{Kind: AddrTLS, Data: dataID}, ly), nil
}

// staticDataID implements the static declaration policy: it derives
// linkage, mutability and the thread-local flag from the static's source
// attributes and declares the symbol. For statics with an explicit linkage
// hint it additionally builds the extern-with-linkage indirection object
// and returns that object's handle instead.
func staticDataID(p *Pass, id mem.StaticID, definition bool) (obj.DataID, error) {
	st := p.Store.StaticOf(id)
	if st == nil {
		return obj.NoDataID, malformed(source.Span{}, "unknown static %d", id)
	}

	var linkage obj.Linkage
	switch {
	case definition:
		if st.Vis == mem.VisExport {
			linkage = obj.LinkageExport
		} else {
			linkage = obj.LinkageLocal
		}
	case st.Hint == mem.HintWeak || st.Hint == mem.HintExternWeak:
		linkage = obj.LinkagePreemptible
	default:
		linkage = obj.LinkageImport
	}

	// Conservative: a static is writable unless its type is provably free
	// of interior mutability. Read-only placement of interior-mutable data
	// would be a memory-model violation.
	mutable := st.Mutable || st.Freeze != mem.FreezeYes

	dataID, err := p.Module.DeclareData(st.Name, linkage, mutable, st.ThreadLocal)
	if err != nil {
		return obj.NoDataID, err
	}

	if st.Hint == mem.HintNone {
		return dataID, nil
	}

	// The symbol may be discarded during linking. Declare a local
	// indirection object holding the symbol's address: if the symbol is
	// discarded, the slot resolves to zero instead of failing the link.
	// Every reference site defines the same indirection object, so a
	// duplicate definition here is expected and already satisfied.
	refName := fmt.Sprintf("_kiln_extern_with_linkage_%s", st.Name)
	refID, err := p.Module.DeclareData(refName, obj.LinkageLocal, false, false)
	if err != nil {
		return obj.NoDataID, err
	}
	align, err := safecast.Conv[uint64](st.Layout.Align)
	if err != nil || align == 0 {
		align = uint64(p.Target.PtrAlign)
	}
	desc := &obj.DataDesc{
		Align: align,
		Bytes: make([]byte, p.Target.PtrSize),
		Relocs: []obj.Reloc{
			{Offset: 0, Kind: obj.RelocData, Data: dataID, Addend: 0},
		},
	}
	if err := p.Module.DefineData(refID, desc); err != nil && !errors.Is(err, obj.ErrDuplicateDefinition) {
		return obj.NoDataID, err
	}
	return refID, nil
}
