package mem

import (
	"kiln/internal/layout"
	"kiln/internal/source"
)

// ConstantKind discriminates Constant.
type ConstantKind uint8

const (
	// ConstValue is an already-evaluated value.
	ConstValue ConstantKind = iota
	// ConstUnevaluated must be resolved through the Evaluator.
	ConstUnevaluated
	// ConstStaticRef is a direct reference to a named static.
	ConstStaticRef
)

// Constant is one constant operand as it appears at a use-site in a
// function body.
type Constant struct {
	Kind   ConstantKind
	Value  Value    // ConstValue
	Ref    ConstRef // ConstUnevaluated
	Static StaticID // ConstStaticRef
	Layout layout.TypeLayout
	Span   source.Span
}

// RequiredConst is one constant a function body cannot compile without.
// They are checked up front so codegen never encounters a surprise
// evaluation failure mid-function.
type RequiredConst struct {
	Ref  ConstRef
	Span source.Span
}

// Function is the slice of a function the materialization engine needs:
// its identity for diagnostics and its required constants.
type Function struct {
	Name           string
	Span           source.Span
	RequiredConsts []RequiredConst
}
