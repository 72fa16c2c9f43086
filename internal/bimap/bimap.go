package bimap

// Table is an append-only bidirectional interning table. GetOrInsert assigns
// dense uint32 ids in insertion order; a table built by AsPer carries another
// table's numbering instead, so its ids need not be dense. A replica never
// removes or renumbers an entry once assigned; translation between replicas
// goes through AsPer.
type Table struct {
	fwd   map[string]uint32
	rev   map[uint32]string
	order []string
}

func New() *Table {
	return &Table{
		fwd: make(map[string]uint32),
		rev: make(map[uint32]string),
	}
}

func (t *Table) Len() int {
	return len(t.order)
}

// GetOrInsert returns the id for key, assigning the next unused id when the
// key is new.
func (t *Table) GetOrInsert(key string) uint32 {
	if id, ok := t.fwd[key]; ok {
		return id
	}
	id := uint32(len(t.order))
	t.put(key, id)
	return id
}

func (t *Table) Get(key string) (uint32, bool) {
	id, ok := t.fwd[key]
	return id, ok
}

// Key is the reverse lookup of Get.
func (t *Table) Key(id uint32) (string, bool) {
	key, ok := t.rev[id]
	return key, ok
}

func (t *Table) Contains(key string) bool {
	_, ok := t.fwd[key]
	return ok
}

// Keys returns the keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *Table) put(key string, id uint32) {
	if _, ok := t.fwd[key]; ok {
		return
	}
	if _, ok := t.rev[id]; ok {
		return
	}
	t.fwd[key] = id
	t.rev[id] = key
	t.order = append(t.order, key)
}

func (t *Table) Clone() *Table {
	out := New()
	for _, key := range t.order {
		out.put(key, t.fwd[key])
	}
	return out
}

// AsPer produces a fresh table keyed by t's keys where assigned ids match
// other's table when the key exists there, and otherwise extend other's
// numbering in the order t encountered them. The receiver and other are left
// untouched.
func (t *Table) AsPer(other *Table) *Table {
	scratch := other.Clone()
	out := New()
	for _, key := range t.order {
		out.put(key, scratch.GetOrInsert(key))
	}
	return out
}

// Merge unions both tables, preserving t's numbering for overlapping keys.
func (t *Table) Merge(other *Table) *Table {
	out := t.Clone()
	for _, key := range other.order {
		out.put(key, other.fwd[key])
	}
	return out
}
