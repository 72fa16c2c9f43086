package doc

import (
	"encoding/json"
	"sort"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/store"
)

// ToJSON renders the visible tree as plain Go values: maps, slices, strings
// and atom payloads. Two replicas holding the same operations render
// identical values regardless of integration order.
func (d *Document) ToJSON() any {
	return d.renderItem(d.store.Root())
}

// JSONString is the canonical serialized form used for convergence checks;
// map keys serialize sorted.
func (d *Document) JSONString() string {
	b, err := json.Marshal(d.ToJSON())
	if err != nil {
		return ""
	}
	return string(b)
}

func (d *Document) renderItem(it *item.Item) any {
	switch it.Kind() {
	case item.KindRoot, item.KindMap:
		return d.renderMap(it)
	case item.KindList:
		out := make([]any, 0)
		for _, c := range visibleChildren(it) {
			out = append(out, d.renderItem(c))
		}
		return out
	case item.KindText:
		return d.renderText(it)
	case item.KindString:
		return it.Data.Content.Str
	case item.KindAtom:
		return it.Data.Content.Value
	case item.KindDoc:
		if c := it.Data.Content; c.Kind == item.ContentDoc {
			return map[string]any{"guid": c.Doc.GUID}
		}
		return nil
	default:
		return nil
	}
}

func (d *Document) renderMap(it *item.Item) map[string]any {
	fields := make(map[id.FieldId]*item.Item)
	for c := it.Start; c != nil; c = c.Right {
		if c.Deleted || !c.Data.HasField {
			continue
		}
		switch c.Kind() {
		case item.KindMove, item.KindProxy, item.KindMark:
			continue
		}
		fid := c.Data.Field
		if cur, ok := fields[fid]; !ok || id.Compare(c.ID(), cur.ID(), d.store.State.Clients) > 0 {
			fields[fid] = c
		}
	}

	out := make(map[string]any, len(fields))
	for fid, c := range fields {
		name, ok := d.store.Fields.Key(fid)
		if !ok {
			continue
		}
		out[name] = d.renderItem(c)
	}
	return out
}

func (d *Document) renderText(it *item.Item) string {
	var runs []string
	for _, c := range visibleChildren(it) {
		if c.Kind() == item.KindString {
			runs = append(runs, c.Data.Content.Str)
		}
	}
	var sb []byte
	for _, run := range runs {
		sb = append(sb, run...)
	}
	return string(sb)
}

// VisibleSize exposes the tombstone-aware size of a collection node.
func (d *Document) VisibleSize(n *Node) int {
	it := n.item()
	if it == nil {
		return 0
	}
	return store.VisibleSize(it)
}

// SortedFieldNames lists the root's live fields, sorted.
func (d *Document) SortedFieldNames() []string {
	names := d.Root().FieldNames()
	sort.Strings(names)
	return names
}
