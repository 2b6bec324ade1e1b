package obj

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

type dataEntry struct {
	Name     string // "" for anonymous objects
	Linkage  Linkage
	Writable bool
	TLS      bool
	Defined  bool
	Desc     DataDesc
}

type funcEntry struct {
	Name string
}

// ObjectModule is the in-memory Module implementation. All methods are safe
// for concurrent use; the mutex serializes the symbol table shared between
// units compiled in parallel.
type ObjectModule struct {
	mu sync.Mutex

	data       []dataEntry // index 0 reserved for NoDataID
	dataByName map[string]DataID

	funcs       []funcEntry // index 0 reserved for NoFuncID
	funcsByName map[string]FuncID
}

// NewObjectModule creates an empty module.
func NewObjectModule() *ObjectModule {
	return &ObjectModule{
		data:        make([]dataEntry, 1, 64),
		dataByName:  make(map[string]DataID, 64),
		funcs:       make([]funcEntry, 1, 16),
		funcsByName: make(map[string]FuncID, 16),
	}
}

func (m *ObjectModule) newDataID(e dataEntry) (DataID, error) {
	value, err := safecast.Conv[uint32](len(m.data))
	if err != nil {
		return NoDataID, fmt.Errorf("data object table overflow: %w", err)
	}
	m.data = append(m.data, e)
	return DataID(value), nil
}

// DeclareData implements Module.
func (m *ObjectModule) DeclareData(name string, linkage Linkage, writable, tls bool) (DataID, error) {
	if name == "" {
		return NoDataID, fmt.Errorf("named data object needs a name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.dataByName[name]; ok {
		entry := &m.data[id]
		entry.Linkage = entry.Linkage.merge(linkage)
		entry.Writable = entry.Writable || writable
		if entry.TLS != tls {
			return NoDataID, fmt.Errorf("symbol %q re-declared with conflicting thread-local flag", name)
		}
		return id, nil
	}
	id, err := m.newDataID(dataEntry{Name: name, Linkage: linkage, Writable: writable, TLS: tls})
	if err != nil {
		return NoDataID, err
	}
	m.dataByName[name] = id
	return id, nil
}

// DeclareAnonymousData implements Module.
func (m *ObjectModule) DeclareAnonymousData(writable, tls bool) (DataID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newDataID(dataEntry{Linkage: LinkageLocal, Writable: writable, TLS: tls})
}

// DefineData implements Module.
func (m *ObjectModule) DefineData(id DataID, desc *DataDesc) error {
	if desc == nil {
		return fmt.Errorf("nil data description")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !id.IsValid() || int(id) >= len(m.data) {
		return fmt.Errorf("define of undeclared data object %d", id)
	}
	entry := &m.data[id]
	if entry.Defined {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, entry.describe(id))
	}
	entry.Defined = true
	entry.Desc = DataDesc{
		Align:   desc.Align,
		Bytes:   append([]byte(nil), desc.Bytes...),
		Relocs:  append([]Reloc(nil), desc.Relocs...),
		Section: desc.Section,
	}
	return nil
}

// DeclareFunction implements Module.
func (m *ObjectModule) DeclareFunction(name string) (FuncID, error) {
	if name == "" {
		return NoFuncID, fmt.Errorf("imported function needs a name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.funcsByName[name]; ok {
		return id, nil
	}
	value, err := safecast.Conv[uint32](len(m.funcs))
	if err != nil {
		return NoFuncID, fmt.Errorf("function table overflow: %w", err)
	}
	id := FuncID(value)
	m.funcs = append(m.funcs, funcEntry{Name: name})
	m.funcsByName[name] = id
	return id, nil
}

func (e *dataEntry) describe(id DataID) string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("anon#%d", id)
}

// DataName returns the symbol name of id, or "" for anonymous objects.
func (m *ObjectModule) DataName(id DataID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !id.IsValid() || int(id) >= len(m.data) {
		return ""
	}
	return m.data[id].Name
}

// Defined reports whether id has received its definition.
func (m *ObjectModule) Defined(id DataID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !id.IsValid() || int(id) >= len(m.data) {
		return false
	}
	return m.data[id].Defined
}

// Data returns a copy of the definition of id.
func (m *ObjectModule) Data(id DataID) (DataDesc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !id.IsValid() || int(id) >= len(m.data) || !m.data[id].Defined {
		return DataDesc{}, false
	}
	d := m.data[id].Desc
	return DataDesc{
		Align:   d.Align,
		Bytes:   append([]byte(nil), d.Bytes...),
		Relocs:  append([]Reloc(nil), d.Relocs...),
		Section: d.Section,
	}, true
}

// LookupData returns the DataID declared under name.
func (m *ObjectModule) LookupData(name string) (DataID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.dataByName[name]
	return id, ok
}

// FuncName returns the name of an imported function.
func (m *ObjectModule) FuncName(id FuncID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !id.IsValid() || int(id) >= len(m.funcs) {
		return ""
	}
	return m.funcs[id].Name
}

// NumData reports how many data objects have been declared.
func (m *ObjectModule) NumData() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data) - 1
}
