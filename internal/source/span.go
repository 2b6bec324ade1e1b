package source

import (
	"fmt"
)

// Span is a half-open byte range inside a compilation unit's source text.
// The engine never reads source text itself; spans are carried through from
// the frontend so diagnostics can point at the originating item.
type Span struct {
	Unit  UnitID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.Unit, s.Start, s.End)
}

// Cover extends s to include other, when both are in the same unit.
func (s Span) Cover(other Span) Span {
	if s.Unit != other.Unit {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
