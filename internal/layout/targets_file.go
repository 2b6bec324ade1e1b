package layout

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// targetSpec is the on-disk shape of one [targets.<triple>] table.
type targetSpec struct {
	PtrSize       int    `toml:"ptr_size"`
	PtrAlign      int    `toml:"ptr_align"`
	Endian        string `toml:"endian"`
	IntRegBits    int    `toml:"int_reg_bits"`
	VectorRegBits int    `toml:"vector_reg_bits"`
}

type targetsFile struct {
	Targets map[string]targetSpec `toml:"targets"`
}

// Builtin returns the compiled-in target for triple, if any.
func Builtin(triple string) (Target, bool) {
	switch triple {
	case "", "x86_64-linux-gnu":
		return X86_64LinuxGNU(), true
	case "aarch64-linux-gnu":
		return AArch64LinuxGNU(), true
	}
	return Target{}, false
}

// LoadTargets parses a TOML targets file and returns the targets keyed by
// triple. Unset fields fall back to the x86-64 defaults.
func LoadTargets(path string) (map[string]Target, error) {
	var cfg targetsFile
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %q: %w", path, err)
	}
	out := make(map[string]Target, len(cfg.Targets))
	for triple, spec := range cfg.Targets {
		t, err := specToTarget(triple, spec)
		if err != nil {
			return nil, err
		}
		out[triple] = t
	}
	return out, nil
}

func specToTarget(triple string, spec targetSpec) (Target, error) {
	def := X86_64LinuxGNU()
	t := Target{
		Triple:        triple,
		PtrSize:       spec.PtrSize,
		PtrAlign:      spec.PtrAlign,
		IntRegBits:    spec.IntRegBits,
		VectorRegBits: spec.VectorRegBits,
	}
	if t.PtrSize == 0 {
		t.PtrSize = def.PtrSize
	}
	if t.PtrAlign == 0 {
		t.PtrAlign = t.PtrSize
	}
	if t.IntRegBits == 0 {
		t.IntRegBits = t.PtrSize * 8
	}
	switch spec.Endian {
	case "", "little":
		t.Endian = Little
	case "big":
		t.Endian = Big
	default:
		return Target{}, fmt.Errorf("target %s: unknown endianness %q", triple, spec.Endian)
	}
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}
