package mem

import (
	"kiln/internal/layout"
	"kiln/internal/source"
)

// Visibility of a static at its definition site.
type Visibility uint8

const (
	VisLocal Visibility = iota
	VisExport
)

// LinkageHint is the source-level linkage attribute of a static. Anything
// other than HintNone means the symbol may be discarded by the linker and
// triggers the extern-with-linkage indirection pattern.
type LinkageHint uint8

const (
	HintNone LinkageHint = iota
	HintWeak
	HintExternWeak
)

// Freeze records whether a static's type is provably free of interior
// mutability. Unknown must be treated like No: placing possibly
// interior-mutable data in read-only memory is a correctness hazard.
type Freeze uint8

const (
	FreezeUnknown Freeze = iota
	FreezeYes
	FreezeNo
)

// Static describes one source-level static/global item. The mangled symbol
// name is given by the frontend and opaque here.
type Static struct {
	Name        string
	Vis         Visibility
	Hint        LinkageHint
	Mutable     bool
	Freeze      Freeze
	ThreadLocal bool
	Section     string // link-section attribute, "" when unset
	DefinedHere bool   // this unit owns the definition
	Layout      layout.TypeLayout
	Span        source.Span

	// Initializer, filled in by the evaluator for statics this unit defines.
	InitAlloc AllocID
	InitErr   *EvalError
}
