package doc

import (
	"fmt"
	"sort"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// Map is a field-keyed collection. Each Set appends a member item carrying
// the interned field id; concurrent writers leave multiple live members for
// one field and the greatest item id wins, identically on every replica.
type Map struct {
	Node
}

func (m *Map) Set(field string, n *Node) error {
	it := m.item()
	if it == nil {
		return ErrDetached
	}
	if n.attached {
		return fmt.Errorf("doc: node already attached at %s", n.data.ID)
	}

	fid := m.doc.store.Fields.GetOrInsert(field)
	for _, c := range m.fieldItems(it, fid) {
		if err := m.doc.deleteRange(c.Range()); err != nil {
			return err
		}
	}

	n.data.Field = fid
	n.data.HasField = true
	return m.doc.attach(n, it, it.End)
}

// Get returns the live value of a field, nil when unset.
func (m *Map) Get(field string) *Node {
	it := m.item()
	if it == nil {
		return nil
	}
	fid, ok := m.doc.store.Fields.Get(field)
	if !ok {
		return nil
	}
	winner := m.winner(it, fid)
	if winner == nil {
		return nil
	}
	return wrap(m.doc, winner)
}

func (m *Map) Remove(field string) {
	it := m.item()
	if it == nil {
		return
	}
	fid, ok := m.doc.store.Fields.Get(field)
	if !ok {
		return
	}
	for _, c := range m.fieldItems(it, fid) {
		_ = m.doc.deleteRange(c.Range())
	}
}

func (m *Map) Has(field string) bool {
	return m.Get(field) != nil
}

// Size counts the distinct fields with a live value.
func (m *Map) Size() int {
	return len(m.liveFields())
}

// FieldNames returns the live field names, sorted.
func (m *Map) FieldNames() []string {
	fields := m.liveFields()
	names := make([]string, 0, len(fields))
	for fid := range fields {
		if name, ok := m.doc.store.Fields.Key(fid); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *Map) Clear() {
	for _, name := range m.FieldNames() {
		m.Remove(name)
	}
}

// fieldItems collects the live member items carrying a field id.
func (m *Map) fieldItems(it *item.Item, fid id.FieldId) []*item.Item {
	var out []*item.Item
	for c := it.Start; c != nil; c = c.Right {
		if c.Deleted || !c.Data.HasField || c.Data.Field != fid {
			continue
		}
		if c.Kind() == item.KindMove || c.Kind() == item.KindProxy {
			continue
		}
		out = append(out, c)
	}
	return out
}

// winner picks the surviving member for a field: the greatest item id in the
// global order among the live ones.
func (m *Map) winner(it *item.Item, fid id.FieldId) *item.Item {
	var winner *item.Item
	for _, c := range m.fieldItems(it, fid) {
		if winner == nil || id.Compare(c.ID(), winner.ID(), m.doc.store.State.Clients) > 0 {
			winner = c
		}
	}
	return winner
}

func (m *Map) liveFields() map[id.FieldId]*item.Item {
	out := make(map[id.FieldId]*item.Item)
	it := m.item()
	if it == nil {
		return out
	}
	for c := it.Start; c != nil; c = c.Right {
		if c.Deleted || !c.Data.HasField {
			continue
		}
		if c.Kind() == item.KindMove || c.Kind() == item.KindProxy || c.Kind() == item.KindMark {
			continue
		}
		fid := c.Data.Field
		if cur, ok := out[fid]; !ok || id.Compare(c.ID(), cur.ID(), m.doc.store.State.Clients) > 0 {
			out[fid] = c
		}
	}
	return out
}
