package obj

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// Snapshot is the serializable image of an ObjectModule: every declared
// symbol with its attributes, bytes and symbolic relocations. It is what
// the CLI writes out and what a linker-side consumer reads back.
type Snapshot struct {
	Schema uint16
	Data   []SnapshotData
	Funcs  []SnapshotFunc
}

type SnapshotData struct {
	Name     string
	Linkage  uint8
	Writable bool
	TLS      bool
	Defined  bool
	Align    uint64
	Bytes    []byte
	Relocs   []Reloc
	Section  string
}

type SnapshotFunc struct {
	Name string
}

// Snapshot captures the module's current contents.
func (m *ObjectModule) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &Snapshot{Schema: snapshotSchemaVersion}
	snap.Data = make([]SnapshotData, 0, len(m.data)-1)
	for _, e := range m.data[1:] {
		snap.Data = append(snap.Data, SnapshotData{
			Name:     e.Name,
			Linkage:  uint8(e.Linkage),
			Writable: e.Writable,
			TLS:      e.TLS,
			Defined:  e.Defined,
			Align:    e.Desc.Align,
			Bytes:    append([]byte(nil), e.Desc.Bytes...),
			Relocs:   append([]Reloc(nil), e.Desc.Relocs...),
			Section:  e.Desc.Section,
		})
	}
	snap.Funcs = make([]SnapshotFunc, 0, len(m.funcs)-1)
	for _, f := range m.funcs[1:] {
		snap.Funcs = append(snap.Funcs, SnapshotFunc{Name: f.Name})
	}
	return snap
}

// WriteFile serializes the snapshot to path, replacing it atomically.
func (s *Snapshot) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a snapshot from path. The second return is false when
// the file does not exist.
func ReadSnapshot(path string) (*Snapshot, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()
	var snap Snapshot
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		return nil, false, err
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, false, fmt.Errorf("snapshot %q has schema %d, want %d", path, snap.Schema, snapshotSchemaVersion)
	}
	return &snap, true, nil
}
