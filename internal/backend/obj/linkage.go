package obj

// Linkage of a symbol in the destination module.
type Linkage uint8

const (
	// LinkageImport: the symbol is defined elsewhere.
	LinkageImport Linkage = iota
	// LinkageLocal: visible only within the object file.
	LinkageLocal
	// LinkageHidden: defined here, not exported from the final artifact.
	LinkageHidden
	// LinkageExport: defined here and visible to other objects.
	LinkageExport
	// LinkagePreemptible: may resolve to absent/null at link time (weak).
	LinkagePreemptible
)

func (l Linkage) String() string {
	switch l {
	case LinkageImport:
		return "import"
	case LinkageLocal:
		return "local"
	case LinkageHidden:
		return "hidden"
	case LinkageExport:
		return "export"
	case LinkagePreemptible:
		return "preemptible"
	}
	return "unknown"
}

// rank orders linkages by strength for merging. Reference-site linkages
// (Import, Preemptible) rank below every definition-site linkage, and Export
// is strongest: defining a weak symbol in this unit overrides the
// preemptible view its reference sites declared.
func (l Linkage) rank() int {
	switch l {
	case LinkageImport:
		return 0
	case LinkagePreemptible:
		return 1
	case LinkageLocal:
		return 2
	case LinkageHidden:
		return 3
	case LinkageExport:
		return 4
	}
	return 0
}

// merge picks the stronger of two linkages for repeated declarations of the
// same symbol: a definition-site linkage wins over a reference-site one.
func (l Linkage) merge(other Linkage) Linkage {
	if other.rank() > l.rank() {
		return other
	}
	return l
}
