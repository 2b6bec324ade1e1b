package obj

import "errors"

// ErrDuplicateDefinition is returned by DefineData when the object already
// has a definition. Callers may treat it as satisfied only for the
// extern-with-linkage indirection objects; anywhere else it is a bug.
var ErrDuplicateDefinition = errors.New("duplicate data definition")

// Module is the destination object module. Declarations are idempotent:
// declaring the same named symbol twice yields the same handle. A Module
// shared between concurrently compiled units must serialize these calls
// itself.
type Module interface {
	// DeclareData declares a named data object. Re-declaring merges the
	// linkage (definition-site linkage wins) and returns the same DataID.
	DeclareData(name string, linkage Linkage, writable, tls bool) (DataID, error)

	// DeclareAnonymousData declares an unnamed data object. Every call
	// returns a fresh DataID.
	DeclareAnonymousData(writable, tls bool) (DataID, error)

	// DefineData supplies the bytes and relocations for a declared object.
	// Exactly one definition is allowed per DataID.
	DefineData(id DataID, desc *DataDesc) error

	// DeclareFunction declares an imported function by name, idempotently.
	DeclareFunction(name string) (FuncID, error)
}
