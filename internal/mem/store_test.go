package mem_test

import (
	"bytes"
	"errors"
	"testing"

	"kiln/internal/layout"
	"kiln/internal/mem"
)

func TestInternAllocDedup(t *testing.T) {
	s := mem.NewStore()

	a := mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 4}
	id1 := s.InternAlloc(a)
	id2 := s.InternAlloc(mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 4})
	if id1 != id2 {
		t.Fatalf("value-equal allocations interned differently: %d vs %d", id1, id2)
	}

	// Any difference in content, alignment, mutability or provenance is a
	// different identity.
	if id := s.InternAlloc(mem.Allocation{Bytes: []byte{1, 2, 4}, Align: 4}); id == id1 {
		t.Fatal("different bytes interned to the same ID")
	}
	if id := s.InternAlloc(mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 8}); id == id1 {
		t.Fatal("different alignment interned to the same ID")
	}
	if id := s.InternAlloc(mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 4, Mutability: mem.Mutable}); id == id1 {
		t.Fatal("different mutability interned to the same ID")
	}
	if id := s.InternAlloc(mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 4, Provenance: []mem.Provenance{{Offset: 0, Target: id1}}}); id == id1 {
		t.Fatal("different provenance interned to the same ID")
	}
}

func TestNewAnonAllocNeverDedups(t *testing.T) {
	s := mem.NewStore()

	a := mem.Allocation{Bytes: []byte{1, 2, 3}, Align: 4}
	id1 := s.NewAnonAlloc(a)
	id2 := s.NewAnonAlloc(a)
	if id1 == id2 {
		t.Fatal("anonymous allocations must stay unique")
	}
	interned := s.InternAlloc(a)
	if interned == id1 || interned == id2 {
		t.Fatal("interning must not find anonymous allocations")
	}
}

func TestReserveAndFill(t *testing.T) {
	s := mem.NewStore()

	id := s.ReserveAlloc()
	got, ok := s.Alloc(id)
	if !ok || got.Len() != 0 {
		t.Fatal("reserved allocation should exist and be empty")
	}
	if err := s.FillAlloc(id, mem.Allocation{Bytes: []byte{9}, Align: 1}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Alloc(id)
	if !bytes.Equal(got.Bytes, []byte{9}) {
		t.Fatalf("fill lost: %v", got.Bytes)
	}

	fid := s.RegisterFunction("f")
	if err := s.FillAlloc(fid, mem.Allocation{}); err == nil {
		t.Fatal("filling a function allocation must fail")
	}
	if err := s.FillAlloc(mem.NoAllocID, mem.Allocation{}); err == nil {
		t.Fatal("filling the zero ID must fail")
	}
}

func TestGlobalKinds(t *testing.T) {
	s := mem.NewStore()

	memID := s.InternAlloc(mem.Allocation{Bytes: []byte{1}, Align: 1})
	funcID := s.RegisterFunction("callee")
	sid, staticAddr := s.RegisterStatic(mem.Static{Name: "S"})

	g, ok := s.Global(memID)
	if !ok || g.Kind != mem.GlobalMemory {
		t.Fatalf("memory alloc kind = %+v", g)
	}
	g, ok = s.Global(funcID)
	if !ok || g.Kind != mem.GlobalFunction || g.FuncName != "callee" {
		t.Fatalf("function alloc kind = %+v", g)
	}
	g, ok = s.Global(staticAddr)
	if !ok || g.Kind != mem.GlobalStatic || g.Static != sid {
		t.Fatalf("static alloc kind = %+v", g)
	}

	// Alloc only answers for plain memory.
	if _, ok := s.Alloc(funcID); ok {
		t.Fatal("function allocation exposed as plain memory")
	}
	if _, ok := s.Alloc(staticAddr); ok {
		t.Fatal("static address allocation exposed as plain memory")
	}
}

func TestResolve(t *testing.T) {
	s := mem.NewStore()

	good := s.AddConst(mem.ScalarValue(mem.IntScalar(7, 4)))
	bad := s.AddErrConst(mem.EvalTooGeneric)

	v, err := s.Resolve(good)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.Scalar.Uint64(); n != 7 {
		t.Fatalf("resolved value = %d, want 7", n)
	}

	_, err = s.Resolve(bad)
	var evalErr *mem.EvalError
	if !errors.As(err, &evalErr) || evalErr.Kind != mem.EvalTooGeneric {
		t.Fatalf("expected too-generic EvalError, got %v", err)
	}
	if _, err := s.Resolve(mem.NoConstRef); err == nil {
		t.Fatal("zero reference must not resolve")
	}
}

func TestEvalStaticInitializer(t *testing.T) {
	s := mem.NewStore()

	init := s.InternAlloc(mem.Allocation{Bytes: []byte{1}, Align: 1})
	sid, _ := s.RegisterStatic(mem.Static{Name: "ok", InitAlloc: init})
	got, err := s.EvalStaticInitializer(sid)
	if err != nil {
		t.Fatal(err)
	}
	if got != init {
		t.Fatalf("initializer alloc = %d, want %d", got, init)
	}

	failed, _ := s.RegisterStatic(mem.Static{Name: "bad", InitErr: &mem.EvalError{Kind: mem.EvalReported}})
	_, err = s.EvalStaticInitializer(failed)
	var evalErr *mem.EvalError
	if !errors.As(err, &evalErr) || evalErr.Kind != mem.EvalReported {
		t.Fatalf("expected reported EvalError, got %v", err)
	}

	extern, _ := s.RegisterStatic(mem.Static{Name: "extern"})
	if _, err := s.EvalStaticInitializer(extern); err == nil {
		t.Fatal("static without initializer must not evaluate")
	}
}

func TestPointerReadWrite(t *testing.T) {
	little := layout.X86_64LinuxGNU()
	big := little
	big.Endian = layout.Big

	for _, tt := range []struct {
		name   string
		target layout.Target
	}{
		{"little", little},
		{"big", big},
	} {
		t.Run(tt.name, func(t *testing.T) {
			a := mem.Allocation{Bytes: make([]byte, 16)}
			if err := a.WritePointer(tt.target, 8, 0xdeadbeef); err != nil {
				t.Fatal(err)
			}
			got, err := a.ReadPointer(tt.target, 8)
			if err != nil {
				t.Fatal(err)
			}
			if got != 0xdeadbeef {
				t.Fatalf("round trip = %#x", got)
			}
		})
	}

	// Byte order actually differs on the wire.
	a := mem.Allocation{Bytes: make([]byte, 8)}
	if err := a.WritePointer(big, 0, 1); err != nil {
		t.Fatal(err)
	}
	if a.Bytes[7] != 1 || a.Bytes[0] != 0 {
		t.Fatalf("big-endian write landed wrong: %v", a.Bytes)
	}
}

func TestPointerReadOutOfRange(t *testing.T) {
	a := mem.Allocation{Bytes: make([]byte, 4)}
	if _, err := a.ReadPointer(layout.X86_64LinuxGNU(), 0); err == nil {
		t.Fatal("8-byte read from a 4-byte allocation must fail")
	}
}

func TestScalarEncodeBits(t *testing.T) {
	s := mem.IntScalar(0x0102, 2)
	little := layout.X86_64LinuxGNU()
	big := little
	big.Endian = layout.Big

	dst := make([]byte, 2)
	if err := s.EncodeBits(dst, little); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, []byte{0x02, 0x01}) {
		t.Fatalf("little-endian encoding = %v", dst)
	}
	if err := s.EncodeBits(dst, big); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, []byte{0x01, 0x02}) {
		t.Fatalf("big-endian encoding = %v", dst)
	}

	if err := s.EncodeBits(make([]byte, 4), little); err == nil {
		t.Fatal("width mismatch must be rejected")
	}
	if err := mem.PtrScalar(1, 0).EncodeBits(dst, little); err == nil {
		t.Fatal("pointer scalars have no raw bit encoding")
	}
}
