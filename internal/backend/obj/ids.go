package obj

// DataID is the module's handle for a declared (possibly not yet defined)
// data object.
type DataID uint32

const NoDataID DataID = 0

func (id DataID) IsValid() bool { return id != NoDataID }

// FuncID is the module's handle for a declared (imported) function.
type FuncID uint32

const NoFuncID FuncID = 0

func (id FuncID) IsValid() bool { return id != NoFuncID }
