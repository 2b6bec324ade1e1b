package obj_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"kiln/internal/backend/obj"
)

func TestDeclareDataIdempotent(t *testing.T) {
	m := obj.NewObjectModule()

	id1, err := m.DeclareData("sym", obj.LinkageImport, false, false)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := m.DeclareData("sym", obj.LinkageExport, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("re-declaration returned a new ID: %d vs %d", id1, id2)
	}
	if got := m.NumData(); got != 1 {
		t.Fatalf("NumData = %d, want 1", got)
	}

	// Linkage upgrades, writable is sticky.
	snap := m.Snapshot()
	if snap.Data[0].Linkage != uint8(obj.LinkageExport) {
		t.Fatalf("linkage = %d, want export", snap.Data[0].Linkage)
	}
	if !snap.Data[0].Writable {
		t.Fatal("writable flag should be sticky across declarations")
	}
}

func TestDeclareDataTLSConflict(t *testing.T) {
	m := obj.NewObjectModule()

	if _, err := m.DeclareData("sym", obj.LinkageImport, false, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.DeclareData("sym", obj.LinkageImport, false, false); err == nil {
		t.Fatal("conflicting thread-local flag must be rejected")
	}
}

func TestDefineDataOnce(t *testing.T) {
	m := obj.NewObjectModule()

	id, err := m.DeclareData("sym", obj.LinkageLocal, false, false)
	if err != nil {
		t.Fatal(err)
	}
	desc := &obj.DataDesc{Align: 4, Bytes: []byte{1, 2, 3, 4}}
	if err := m.DefineData(id, desc); err != nil {
		t.Fatal(err)
	}
	err = m.DefineData(id, desc)
	if !errors.Is(err, obj.ErrDuplicateDefinition) {
		t.Fatalf("second definition: got %v, want ErrDuplicateDefinition", err)
	}
}

func TestDefineDataCopiesDescription(t *testing.T) {
	m := obj.NewObjectModule()

	id, _ := m.DeclareAnonymousData(false, false)
	buf := []byte{1, 2, 3}
	if err := m.DefineData(id, &obj.DataDesc{Align: 1, Bytes: buf}); err != nil {
		t.Fatal(err)
	}
	buf[0] = 99
	got, ok := m.Data(id)
	if !ok {
		t.Fatal("definition lost")
	}
	if !bytes.Equal(got.Bytes, []byte{1, 2, 3}) {
		t.Fatalf("definition aliases caller memory: %v", got.Bytes)
	}
}

func TestDeclareAnonymousDataAlwaysFresh(t *testing.T) {
	m := obj.NewObjectModule()

	id1, err := m.DeclareAnonymousData(false, false)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := m.DeclareAnonymousData(false, false)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("anonymous declarations must not be deduplicated")
	}
}

func TestDeclareFunctionIdempotent(t *testing.T) {
	m := obj.NewObjectModule()

	id1, err := m.DeclareFunction("callee")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := m.DeclareFunction("callee")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("re-declaration returned a new ID: %d vs %d", id1, id2)
	}
	if m.FuncName(id1) != "callee" {
		t.Fatalf("FuncName = %q", m.FuncName(id1))
	}
}

func TestLinkageMerge(t *testing.T) {
	tests := []struct {
		name   string
		first  obj.Linkage
		second obj.Linkage
		want   obj.Linkage
	}{
		{"import_keeps_preemptible", obj.LinkagePreemptible, obj.LinkageImport, obj.LinkagePreemptible},
		{"export_wins_over_preemptible", obj.LinkagePreemptible, obj.LinkageExport, obj.LinkageExport},
		{"preemptible_does_not_downgrade_export", obj.LinkageExport, obj.LinkagePreemptible, obj.LinkageExport},
		{"local_definition_wins_over_import", obj.LinkageImport, obj.LinkageLocal, obj.LinkageLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := obj.NewObjectModule()
			if _, err := m.DeclareData("sym", tt.first, false, false); err != nil {
				t.Fatal(err)
			}
			if _, err := m.DeclareData("sym", tt.second, false, false); err != nil {
				t.Fatal(err)
			}
			snap := m.Snapshot()
			if snap.Data[0].Linkage != uint8(tt.want) {
				t.Fatalf("merged linkage = %d, want %d", snap.Data[0].Linkage, uint8(tt.want))
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := obj.NewObjectModule()

	id, _ := m.DeclareData("greeting", obj.LinkageExport, false, false)
	target, _ := m.DeclareAnonymousData(false, false)
	_ = m.DefineData(target, &obj.DataDesc{Align: 1, Bytes: []byte("hi")})
	fn, _ := m.DeclareFunction("puts")
	err := m.DefineData(id, &obj.DataDesc{
		Align: 8,
		Bytes: make([]byte, 16),
		Relocs: []obj.Reloc{
			{Offset: 0, Kind: obj.RelocData, Data: target, Addend: 1},
			{Offset: 8, Kind: obj.RelocFunc, Func: fn},
		},
		Section: ".rodata",
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "mod.kmod")
	if err := m.Snapshot().WriteFile(path); err != nil {
		t.Fatal(err)
	}
	snap, found, err := obj.ReadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("snapshot file not found after writing")
	}
	if len(snap.Data) != 2 || len(snap.Funcs) != 1 {
		t.Fatalf("snapshot has %d data / %d funcs, want 2 / 1", len(snap.Data), len(snap.Funcs))
	}
	var named *obj.SnapshotData
	for i := range snap.Data {
		if snap.Data[i].Name == "greeting" {
			named = &snap.Data[i]
		}
	}
	if named == nil {
		t.Fatal("named object missing from snapshot")
	}
	if !named.Defined || named.Section != ".rodata" || len(named.Relocs) != 2 {
		t.Fatalf("snapshot entry wrong: %+v", named)
	}
	if named.Relocs[0].Addend != 1 || named.Relocs[1].Kind != obj.RelocFunc {
		t.Fatalf("relocations did not survive the round trip: %+v", named.Relocs)
	}
	if snap.Funcs[0].Name != "puts" {
		t.Fatalf("function name = %q", snap.Funcs[0].Name)
	}
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, found, err := obj.ReadSnapshot(filepath.Join(t.TempDir(), "nope.kmod"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("missing file reported as found")
	}
}
