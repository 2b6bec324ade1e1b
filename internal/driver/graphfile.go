package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"kiln/internal/layout"
	"kiln/internal/mem"
	"kiln/internal/source"
)

// Current schema version - increment when the graph format changes.
const graphSchemaVersion uint16 = 1

// GraphFile is the serialized form of a set of evaluated memory graphs, one
// per compilation unit: what the evaluator hands the engine, flattened for
// transport. References are file-local and translated to store IDs on load.
type GraphFile struct {
	Schema uint16
	Units  []GraphUnit
}

type GraphUnit struct {
	Name    string
	Allocs  []GraphAlloc
	Funcs   []GraphFunc
	Statics []GraphStatic
}

type GraphAlloc struct {
	Ref     uint32
	Bytes   []byte
	Align   uint64
	Mutable bool
	Relocs  []GraphReloc
}

// GraphReloc tags a pointer-sized region of an allocation; Target is a
// file-local reference (another alloc, a func, or a static's address).
type GraphReloc struct {
	Offset uint32
	Target uint32
}

type GraphFunc struct {
	Ref  uint32
	Name string
}

type GraphStatic struct {
	Ref         uint32 // reference under which the static's address appears
	Name        string
	Export      bool
	Mutable     bool
	ThreadLocal bool
	DefinedHere bool
	Linkage     string // "", "weak", "extern_weak"
	Freeze      string // "", "yes", "no"
	Section     string
	Init        uint32 // alloc ref of the initializer, 0 when not defined here
	Size        int
	Align       int
}

// LoadGraph reads a msgpack graph file.
func LoadGraph(path string) (*GraphFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var g GraphFile
	if err := msgpack.NewDecoder(f).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode graph file %q: %w", path, err)
	}
	if g.Schema != graphSchemaVersion {
		return nil, fmt.Errorf("graph file %q has schema %d, want %d", path, g.Schema, graphSchemaVersion)
	}
	return &g, nil
}

// WriteFile serializes the graph to path, replacing it atomically.
func (g *GraphFile) WriteFile(path string) error {
	g.Schema = graphSchemaVersion
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-graph-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(g); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// BuildUnits builds driver Units from the file, one Store per unit.
func (g *GraphFile) BuildUnits() ([]Unit, error) {
	units := make([]Unit, 0, len(g.Units))
	for i := range g.Units {
		u, err := g.Units[i].build()
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", g.Units[i].Name, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func (gu *GraphUnit) build() (Unit, error) {
	store := mem.NewStore()
	refs := make(map[uint32]mem.AllocID, len(gu.Allocs)+len(gu.Funcs)+len(gu.Statics))

	bind := func(ref uint32, id mem.AllocID) error {
		if ref == 0 {
			return errors.New("reference 0 is reserved")
		}
		if _, dup := refs[ref]; dup {
			return fmt.Errorf("duplicate reference %d", ref)
		}
		refs[ref] = id
		return nil
	}

	// Reserve every allocation first: provenance may point anywhere in the
	// graph, including into cycles.
	for i := range gu.Allocs {
		if err := bind(gu.Allocs[i].Ref, store.ReserveAlloc()); err != nil {
			return Unit{}, err
		}
	}
	for i := range gu.Funcs {
		if err := bind(gu.Funcs[i].Ref, store.RegisterFunction(gu.Funcs[i].Name)); err != nil {
			return Unit{}, err
		}
	}

	statics := make([]mem.StaticID, 0, len(gu.Statics))
	for i := range gu.Statics {
		gs := &gu.Statics[i]
		st, err := gs.toStatic(refs)
		if err != nil {
			return Unit{}, err
		}
		sid, aid := store.RegisterStatic(st)
		if err := bind(gs.Ref, aid); err != nil {
			return Unit{}, err
		}
		if gs.DefinedHere {
			statics = append(statics, sid)
		}
	}

	for i := range gu.Allocs {
		ga := &gu.Allocs[i]
		mut := mem.Immutable
		if ga.Mutable {
			mut = mem.Mutable
		}
		alloc := mem.Allocation{
			Bytes:      append([]byte(nil), ga.Bytes...),
			Align:      ga.Align,
			Mutability: mut,
		}
		for _, r := range ga.Relocs {
			target, ok := refs[r.Target]
			if !ok {
				return Unit{}, fmt.Errorf("allocation %d: relocation target %d is unknown", ga.Ref, r.Target)
			}
			alloc.Provenance = append(alloc.Provenance, mem.Provenance{Offset: r.Offset, Target: target})
		}
		if err := store.FillAlloc(refs[ga.Ref], alloc); err != nil {
			return Unit{}, err
		}
	}

	return Unit{Name: gu.Name, Store: store, Statics: statics}, nil
}

func (gs *GraphStatic) toStatic(refs map[uint32]mem.AllocID) (mem.Static, error) {
	st := mem.Static{
		Name:        gs.Name,
		Mutable:     gs.Mutable,
		ThreadLocal: gs.ThreadLocal,
		Section:     gs.Section,
		DefinedHere: gs.DefinedHere,
		Layout:      layout.Aggregate(gs.Size, gs.Align),
		Span:        source.Span{},
	}
	if gs.Export {
		st.Vis = mem.VisExport
	}
	switch gs.Linkage {
	case "":
		st.Hint = mem.HintNone
	case "weak":
		st.Hint = mem.HintWeak
	case "extern_weak":
		st.Hint = mem.HintExternWeak
	default:
		return mem.Static{}, fmt.Errorf("static %s: unknown linkage %q", gs.Name, gs.Linkage)
	}
	switch gs.Freeze {
	case "":
		st.Freeze = mem.FreezeUnknown
	case "yes":
		st.Freeze = mem.FreezeYes
	case "no":
		st.Freeze = mem.FreezeNo
	default:
		return mem.Static{}, fmt.Errorf("static %s: unknown freeze state %q", gs.Name, gs.Freeze)
	}
	if gs.Init != 0 {
		id, ok := refs[gs.Init]
		if !ok {
			return mem.Static{}, fmt.Errorf("static %s: initializer reference %d is unknown", gs.Name, gs.Init)
		}
		st.InitAlloc = id
	}
	return st, nil
}
