package source

// UnitID identifies one compilation unit within a session.
type UnitID uint32

// NoUnitID is the invalid sentinel.
const NoUnitID UnitID = 0

// IsValid reports whether the ID refers to a real unit.
func (id UnitID) IsValid() bool { return id != NoUnitID }
