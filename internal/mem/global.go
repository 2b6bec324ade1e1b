package mem

// GlobalKind discriminates what an AllocID resolves to. The set is closed:
// every consumer switches over exactly these three cases.
type GlobalKind uint8

const (
	// GlobalMemory is an anonymous evaluator allocation.
	GlobalMemory GlobalKind = iota
	// GlobalFunction is the address of an imported function.
	GlobalFunction
	// GlobalStatic is the address of a named static item.
	GlobalStatic
)

func (k GlobalKind) String() string {
	switch k {
	case GlobalMemory:
		return "memory"
	case GlobalFunction:
		return "function"
	case GlobalStatic:
		return "static"
	}
	return "unknown"
}

// GlobalAlloc is the resolution of an AllocID.
type GlobalAlloc struct {
	Kind     GlobalKind
	Static   StaticID // GlobalStatic
	FuncName string   // GlobalFunction: mangled symbol
}
