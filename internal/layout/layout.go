package layout

// ScalarClass describes the primitive kind of a scalar layout.
type ScalarClass uint8

const (
	// ClassNone marks aggregate (non-scalar) layouts.
	ClassNone ScalarClass = iota
	ClassInt
	ClassFloat
	ClassPointer
	ClassVector
)

func (c ScalarClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInt:
		return "int"
	case ClassFloat:
		return "float"
	case ClassPointer:
		return "pointer"
	case ClassVector:
		return "vector"
	}
	return "unknown"
}

// TypeLayout is the ABI layout of a type for a specific Target, precomputed
// by the frontend. The engine never inspects types, only layouts.
type TypeLayout struct {
	Size  int // bytes
	Align int // bytes

	// Scalar-only:
	Class ScalarClass
	Bits  int // scalar width; 0 for aggregates
}

// ZeroSized reports whether values of this layout carry no addressable bytes.
func (l TypeLayout) ZeroSized() bool {
	return l.Size == 0
}

// IsScalar reports whether the layout is a single scalar.
func (l TypeLayout) IsScalar() bool {
	return l.Class != ClassNone
}

// Scalar builds a scalar layout of the given class and bit width.
func Scalar(class ScalarClass, bits, align int) TypeLayout {
	return TypeLayout{Size: (bits + 7) / 8, Align: align, Class: class, Bits: bits}
}

// Aggregate builds a non-scalar layout.
func Aggregate(size, align int) TypeLayout {
	return TypeLayout{Size: size, Align: align, Class: ClassNone}
}
