package layout_test

import (
	"os"
	"path/filepath"
	"testing"

	"kiln/internal/layout"
)

func TestNativeScalar(t *testing.T) {
	x86 := layout.X86_64LinuxGNU()
	noVec := x86
	noVec.VectorRegBits = 0

	tests := []struct {
		name   string
		target layout.Target
		layout layout.TypeLayout
		want   bool
	}{
		{"i32", x86, layout.Scalar(layout.ClassInt, 32, 4), true},
		{"i64", x86, layout.Scalar(layout.ClassInt, 64, 8), true},
		{"i128", x86, layout.Scalar(layout.ClassInt, 128, 16), false},
		{"f64", x86, layout.Scalar(layout.ClassFloat, 64, 8), true},
		{"f128", x86, layout.Scalar(layout.ClassFloat, 128, 16), false},
		{"ptr", x86, layout.Scalar(layout.ClassPointer, 64, 8), true},
		{"v128", x86, layout.Scalar(layout.ClassVector, 128, 16), true},
		{"v256", x86, layout.Scalar(layout.ClassVector, 256, 16), false},
		{"v128_no_vector_regs", noVec, layout.Scalar(layout.ClassVector, 128, 16), false},
		{"aggregate", x86, layout.Aggregate(24, 8), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.NativeScalar(tt.layout); got != tt.want {
				t.Errorf("NativeScalar(%+v) = %v, want %v", tt.layout, got, tt.want)
			}
		})
	}
}

func TestScalarLayoutSize(t *testing.T) {
	if got := layout.Scalar(layout.ClassInt, 1, 1).Size; got != 1 {
		t.Errorf("1-bit scalar rounds to %d bytes, want 1", got)
	}
	if got := layout.Scalar(layout.ClassVector, 256, 16).Size; got != 32 {
		t.Errorf("256-bit scalar rounds to %d bytes, want 32", got)
	}
	if !layout.Aggregate(0, 1).ZeroSized() {
		t.Error("empty aggregate should be zero-sized")
	}
}

func TestBuiltinTargets(t *testing.T) {
	for _, triple := range []string{"x86_64-linux-gnu", "aarch64-linux-gnu"} {
		tgt, ok := layout.Builtin(triple)
		if !ok {
			t.Fatalf("builtin target %s missing", triple)
		}
		if err := tgt.Validate(); err != nil {
			t.Fatalf("builtin target %s invalid: %v", triple, err)
		}
	}
	if _, ok := layout.Builtin("m68k-unknown"); ok {
		t.Fatal("unknown triple resolved to a builtin target")
	}
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	src := `
[targets."riscv64-linux-gnu"]
ptr_size = 8
int_reg_bits = 64

[targets."s390x-linux-gnu"]
ptr_size = 8
endian = "big"
vector_reg_bits = 128
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	targets, err := layout.LoadTargets(path)
	if err != nil {
		t.Fatal(err)
	}
	rv, ok := targets["riscv64-linux-gnu"]
	if !ok {
		t.Fatal("riscv64 target missing")
	}
	if rv.PtrAlign != 8 || rv.Endian != layout.Little || rv.VectorRegBits != 0 {
		t.Fatalf("riscv64 defaults wrong: %+v", rv)
	}
	s390, ok := targets["s390x-linux-gnu"]
	if !ok {
		t.Fatal("s390x target missing")
	}
	if s390.Endian != layout.Big || s390.VectorRegBits != 128 {
		t.Fatalf("s390x parsed wrong: %+v", s390)
	}
}

func TestLoadTargetsBadEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	src := `
[targets."pdp11"]
ptr_size = 2
endian = "middle"
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := layout.LoadTargets(path); err == nil {
		t.Fatal("unknown endianness must be rejected")
	}
}
