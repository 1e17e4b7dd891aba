package resolve

import "classc/internal/scope"

// ClassInfo is one class table entry: the class's source name, its stable
// internal (IR-facing) name, and the member scope built during resolution
// of its body.
type ClassInfo struct {
	SourceName   string
	InternalName string
	Members      *scope.Scope
}

// ClassTable maps class IDs to ClassInfo. It is written only during
// resolution and read-only thereafter.
type ClassTable struct {
	byID  map[uint64]*ClassInfo
	order []uint64
}

// NewClassTable returns an empty ClassTable.
func NewClassTable() *ClassTable {
	return &ClassTable{byID: make(map[uint64]*ClassInfo, 8)}
}

// Put records info for class id, in class-ID allocation order.
func (t *ClassTable) Put(id uint64, info *ClassInfo) {
	if _, ok := t.byID[id]; !ok {
		t.order = append(t.order, id)
	}
	t.byID[id] = info
}

// Get returns the ClassInfo for id, if any.
func (t *ClassTable) Get(id uint64) (*ClassInfo, bool) {
	info, ok := t.byID[id]
	return info, ok
}

// IDs returns every class ID in allocation order, which the Module
// assembler uses to emit type aliases in a deterministic order.
func (t *ClassTable) IDs() []uint64 {
	return t.order
}
