package constdata

import (
	"errors"

	"fortio.org/safecast"

	"kiln/internal/diag"
	"kiln/internal/layout"
	"kiln/internal/mem"
	"kiln/internal/source"
)

// CheckConstants resolves every constant a function body requires, before
// any code is generated for it. Evaluator-reported failures become
// diagnostics and the function must be skipped (returns false); a
// too-generic constant at this stage is a violated upstream guarantee and
// comes back as a fatal *Error.
func CheckConstants(p *Pass, fn *mem.Function) (bool, error) {
	allOK := true
	for _, rc := range fn.RequiredConsts {
		_, err := p.Eval.Resolve(rc.Ref)
		if err == nil {
			continue
		}
		var evalErr *mem.EvalError
		if !errors.As(err, &evalErr) {
			return false, err
		}
		switch evalErr.Kind {
		case mem.EvalReported, mem.EvalLinted:
			allOK = false
			p.Reporter.Report(diag.CodegenErroneousConstant, diag.SevError, rc.Span,
				"erroneous constant encountered", nil)
		case mem.EvalTooGeneric:
			return false, polymorphic(rc.Span, evalErr.Error())
		default:
			return false, malformed(rc.Span, "unknown evaluation error kind %d", evalErr.Kind)
		}
	}
	return allOK, nil
}

// CodegenConstant classifies one constant operand at a use-site. Direct
// static references route through the static declaration policy; anything
// unevaluated goes through the evaluator first.
func CodegenConstant(p *Pass, c mem.Constant) (Repr, error) {
	switch c.Kind {
	case mem.ConstValue:
		return CodegenConstValue(p, c.Value, c.Layout, c.Span)
	case mem.ConstStaticRef:
		return CodegenStaticRef(p, c.Static, c.Layout)
	case mem.ConstUnevaluated:
		v, err := p.Eval.Resolve(c.Ref)
		if err != nil {
			var evalErr *mem.EvalError
			if !errors.As(err, &evalErr) {
				return Repr{}, err
			}
			if evalErr.Kind == mem.EvalTooGeneric {
				return Repr{}, polymorphic(c.Span, evalErr.Error())
			}
			// Required constants are checked before codegen starts, so a
			// reported error here means the caller skipped CheckConstants.
			return Repr{}, erroneous(c.Span, "constant not captured by required-constant check")
		}
		return CodegenConstValue(p, v, c.Layout, c.Span)
	}
	return Repr{}, malformed(c.Span, "unknown constant kind %d", c.Kind)
}

// CodegenConstValue is the value classifier: it decides whether an
// evaluated constant is an immediate, a symbolic address, a by-ref view of
// a (possibly freshly synthesized) data object, or a pointer+length pair,
// and applies the module-bound side effects on the way.
func CodegenConstValue(p *Pass, v mem.Value, ly layout.TypeLayout, span source.Span) (Repr, error) {
	if ly.ZeroSized() {
		// No addressable bytes; must not create a data object.
		return dangling(ly), nil
	}

	switch v.Kind {
	case mem.ValueScalar:
		return codegenScalar(p, v.Scalar, ly, span)

	case mem.ValueByRef:
		addr, err := pointerForAllocation(p, v.Alloc, span)
		if err != nil {
			return Repr{}, err
		}
		off, err := safecast.Conv[int64](v.Offset)
		if err != nil {
			return Repr{}, malformed(span, "by-ref offset %d overflows: %v", v.Offset, err)
		}
		addr.Offset += off
		return byRef(addr, ly), nil

	case mem.ValueSlice:
		if v.End < v.Start {
			return Repr{}, malformed(span, "slice bounds underflow: start=%d end=%d", v.Start, v.End)
		}
		addr, err := pointerForAllocation(p, v.Alloc, span)
		if err != nil {
			return Repr{}, err
		}
		start, err := safecast.Conv[int64](v.Start)
		if err != nil {
			return Repr{}, malformed(span, "slice start %d overflows: %v", v.Start, err)
		}
		addr.Offset += start
		return pair(addr, v.End-v.Start, ly), nil
	}
	return Repr{}, malformed(span, "unknown value kind %d", v.Kind)
}

func codegenScalar(p *Pass, s mem.Scalar, ly layout.TypeLayout, span source.Span) (Repr, error) {
	switch s.Kind {
	case mem.ScalarInt:
		if !p.Target.NativeScalar(ly) {
			return spillScalar(p, s, ly, span)
		}
		return immediate(s.Bits, ly), nil

	case mem.ScalarPtr:
		addr, err := resolvePointer(p, s.Ptr, span)
		if err != nil {
			return Repr{}, err
		}
		return addressOf(addr, ly), nil
	}
	return Repr{}, malformed(span, "unknown scalar kind %d", s.Kind)
}

// spillScalar materializes a scalar the target has no register form for
// (e.g. a vector constant wider than the vector registers) as a fresh
// anonymous byte buffer. The buffer is deliberately not interned: this path
// is rare and duplication across call sites is accepted.
func spillScalar(p *Pass, s mem.Scalar, ly layout.TypeLayout, span source.Span) (Repr, error) {
	if len(s.Bits) > ly.Size {
		return Repr{}, malformed(span, "scalar has %d bytes but layout is %d", len(s.Bits), ly.Size)
	}
	buf := make([]byte, ly.Size)
	if err := s.EncodeBits(buf[:len(s.Bits)], p.Target); err != nil {
		return Repr{}, malformed(span, "%v", err)
	}
	align, err := safecast.Conv[uint64](ly.Align)
	if err != nil {
		return Repr{}, malformed(span, "bad alignment %d: %v", ly.Align, err)
	}
	id := p.Store.NewAnonAlloc(mem.Allocation{
		Bytes:      buf,
		Align:      align,
		Mutability: mem.Immutable,
	})
	addr, err := pointerForAllocation(p, id, span)
	if err != nil {
		return Repr{}, err
	}
	return byRef(addr, ly), nil
}

// resolvePointer turns a scalar pointer value into a symbolic address,
// declaring (and for memory targets, queueing) whatever it points at.
func resolvePointer(p *Pass, ptr mem.Pointer, span source.Span) (Addr, error) {
	g, ok := p.Store.Global(ptr.Alloc)
	if !ok {
		return Addr{}, malformed(span, "missing allocation %d", ptr.Alloc)
	}
	off, err := safecast.Conv[int64](ptr.Offset)
	if err != nil {
		return Addr{}, malformed(span, "pointer offset %d overflows: %v", ptr.Offset, err)
	}
	switch g.Kind {
	case mem.GlobalMemory:
		addr, err := pointerForAllocation(p, ptr.Alloc, span)
		if err != nil {
			return Addr{}, err
		}
		addr.Offset += off
		return addr, nil

	case mem.GlobalFunction:
		funcID, err := p.Module.DeclareFunction(g.FuncName)
		if err != nil {
			return Addr{}, err
		}
		return Addr{Kind: AddrFunc, Func: funcID, Offset: off}, nil

	case mem.GlobalStatic:
		dataID, err := staticDataID(p, g.Static, false)
		if err != nil {
			return Addr{}, err
		}
		return Addr{Kind: AddrData, Data: dataID, Offset: off}, nil
	}
	return Addr{}, malformed(span, "unknown global kind %d", g.Kind)
}

// pointerForAllocation queues an allocation for definition and returns the
// address of its (declared) data object.
func pointerForAllocation(p *Pass, id mem.AllocID, span source.Span) (Addr, error) {
	alloc, ok := p.Store.Alloc(id)
	if !ok {
		return Addr{}, malformed(span, "allocation %d is not plain memory", id)
	}
	p.Cx.pushAlloc(id)
	dataID, err := p.Cx.dataIDForAlloc(p, id, alloc.Mutability)
	if err != nil {
		return Addr{}, err
	}
	return Addr{Kind: AddrData, Data: dataID}, nil
}

// ConstValueOfOperand returns the compile-time value of a constant operand,
// or false when the operand is not (or not yet) a known constant. Used by
// instruction selection for immediate folding; never reports diagnostics.
func ConstValueOfOperand(p *Pass, c *mem.Constant) (mem.Value, bool) {
	if c == nil {
		return mem.Value{}, false
	}
	switch c.Kind {
	case mem.ConstValue:
		return c.Value, true
	case mem.ConstUnevaluated:
		v, err := p.Eval.Resolve(c.Ref)
		if err != nil {
			return mem.Value{}, false
		}
		return v, true
	default:
		return mem.Value{}, false
	}
}
