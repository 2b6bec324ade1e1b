package mem

// EvalErrorKind classifies a failed constant evaluation.
type EvalErrorKind uint8

const (
	// EvalReported: the evaluator already diagnosed this constant upstream.
	EvalReported EvalErrorKind = iota
	// EvalTooGeneric: an unresolved generic reached evaluation. Must not
	// occur after monomorphization; consumers treat it as a fatal bug.
	EvalTooGeneric
	// EvalLinted: diagnosed as a lint upstream; handled like EvalReported.
	EvalLinted
)

// EvalError is the error variant of the evaluator boundary. Callers must
// branch on Kind explicitly: some variants abort only the enclosing item,
// others the whole run.
type EvalError struct {
	Kind EvalErrorKind
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case EvalReported:
		return "erroneous constant (already reported)"
	case EvalTooGeneric:
		return "constant is too generic to evaluate"
	case EvalLinted:
		return "erroneous constant (reported as lint)"
	}
	return "constant evaluation failed"
}

// Evaluator is the compile-time evaluation collaborator. Implementations
// resolve unevaluated constant references synchronously; this engine never
// evaluates anything itself.
type Evaluator interface {
	// Resolve returns the evaluated value for ref, or *EvalError.
	Resolve(ref ConstRef) (Value, error)
	// EvalStaticInitializer returns the allocation holding the evaluated
	// initializer bytes of a static this unit defines, or *EvalError.
	EvalStaticInitializer(id StaticID) (AllocID, error)
}
