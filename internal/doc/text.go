package doc

import (
	"fmt"
	"strings"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// Text is a character sequence stored as string runs. A string inserted in one
// call becomes a single item spanning a clock range; separate inserts are not
// merged into one run, and edits inside a run split it.
type Text struct {
	Node
}

// Mark is a formatting annotation over a character range.
type Mark struct {
	Name  string
	Attrs map[string]any
	From  int
	To    int
}

// Size is the number of visible characters.
func (t *Text) Size() int {
	it := t.item()
	if it == nil {
		return 0
	}
	return t.doc.indexFor(it).Len()
}

// String concatenates the visible runs.
func (t *Text) String() string {
	it := t.item()
	if it == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range visibleChildren(it) {
		if c.Kind() == item.KindString {
			sb.WriteString(c.Data.Content.Str)
		}
	}
	return sb.String()
}

// Insert places a string at a character offset.
func (t *Text) Insert(offset int, s string) error {
	if s == "" {
		return nil
	}
	str := t.doc.String(s)
	return t.InsertNode(offset, &str.Node)
}

// InsertNode places a node at a character offset.
func (t *Text) InsertNode(offset int, n *Node) error {
	it := t.item()
	if it == nil {
		return ErrDetached
	}

	left, err := t.locate(it, offset)
	if err != nil {
		return err
	}
	if err := t.doc.attach(n, it, left); err != nil {
		return err
	}
	if ci := t.doc.indexes[it.ID()]; ci != nil && ci.gen == t.doc.gen {
		ci.ix.Insert(offset, n.item(), childWeight(it, n.item()))
	}
	return nil
}

// locate resolves the insertion point before the given character offset:
// nil for the head, otherwise the item the new one goes after, splitting a
// run when the offset falls inside it.
func (t *Text) locate(it *item.Item, offset int) (*item.Item, error) {
	if offset <= 0 {
		return nil, nil
	}
	size := t.Size()
	if offset >= size {
		return it.End, nil
	}

	ix := t.doc.indexFor(it)
	at, off := ix.At(offset)
	if at == nil {
		return nil, fmt.Errorf("doc: text offset %d out of range", offset)
	}
	if off == 0 {
		return at.Left, nil
	}

	left, _, err := t.doc.store.SplitItem(at, id.Clock(off))
	if err != nil {
		return nil, err
	}
	t.doc.dropIndex(it)
	return left, nil
}

// Delete tombstones count characters starting at offset.
func (t *Text) Delete(offset, count int) error {
	it := t.item()
	if it == nil {
		return ErrDetached
	}
	if count <= 0 {
		return nil
	}

	// Collect the covered segments from the visible chain, then cut.
	type segment struct {
		c        *item.Item
		from, to int // character window inside the item
	}
	var segments []segment
	pos := 0
	for _, c := range visibleChildren(it) {
		w := childWeight(it, c)
		start, end := pos, pos+w
		pos = end
		if end <= offset {
			continue
		}
		if start >= offset+count {
			break
		}
		from := 0
		if offset > start {
			from = offset - start
		}
		to := w
		if offset+count < end {
			to = w - (end - (offset + count))
		}
		segments = append(segments, segment{c: c, from: from, to: to})
	}

	for _, seg := range segments {
		c := seg.c
		if seg.from > 0 {
			_, right, err := t.doc.store.SplitItem(c, id.Clock(seg.from))
			if err != nil {
				return err
			}
			c = right
			seg.to -= seg.from
		}
		if id.Clock(seg.to) < c.Size() {
			left, _, err := t.doc.store.SplitItem(c, id.Clock(seg.to))
			if err != nil {
				return err
			}
			c = left
		}
		if err := t.doc.deleteRange(c.Range()); err != nil {
			return err
		}
	}

	t.doc.dropIndex(it)
	return nil
}

// ApplyMark annotates the character range [from, to). The mark anchors to
// the ids of the first and last covered characters, so it follows them
// through concurrent edits.
func (t *Text) ApplyMark(from, to int, name string, attrs map[string]any) error {
	it := t.item()
	if it == nil {
		return ErrDetached
	}
	if from < 0 || to <= from || to > t.Size() {
		return fmt.Errorf("doc: mark range [%d, %d) out of bounds", from, to)
	}

	startItem, err := t.cleanCharStart(it, from)
	if err != nil {
		return err
	}
	endItem, err := t.cleanCharEnd(it, to-1)
	if err != nil {
		return err
	}

	startId := startItem.ID()
	mark := &Node{doc: t.doc, data: &item.Data{
		Kind:     item.KindMark,
		Content:  item.ValueContent(map[string]any{"name": name, "attrs": attrs}),
		TargetID: &startId,
	}}
	return t.doc.attach(mark, it, endItem)
}

// Marks resolves every live annotation to its current character range.
func (t *Text) Marks() []Mark {
	it := t.item()
	if it == nil {
		return nil
	}

	var out []Mark
	for c := it.Start; c != nil; c = c.Right {
		if c.Kind() != item.KindMark || c.Deleted {
			continue
		}
		data := c.Data
		if data.TargetID == nil || data.LeftID == nil {
			continue
		}
		from, ok := t.offsetOf(it, *data.TargetID)
		if !ok {
			continue
		}
		end, ok := t.offsetOf(it, *data.LeftID)
		if !ok {
			continue
		}

		mark := Mark{From: from, To: end + 1}
		if value, ok := data.Content.Value.(map[string]any); ok {
			if name, ok := value["name"].(string); ok {
				mark.Name = name
			}
			if attrs, ok := value["attrs"].(map[string]any); ok {
				mark.Attrs = attrs
			}
		}
		out = append(out, mark)
	}
	return out
}

// offsetOf maps a character id onto its visible offset.
func (t *Text) offsetOf(it *item.Item, charId id.Id) (int, bool) {
	pos := 0
	for _, c := range visibleChildren(it) {
		w := childWeight(it, c)
		r := c.Range()
		if r.Contains(charId) {
			return pos + int(charId.Clock-r.Start), true
		}
		pos += w
	}
	return 0, false
}

// cleanCharStart returns the item beginning exactly at the visible offset.
func (t *Text) cleanCharStart(it *item.Item, offset int) (*item.Item, error) {
	ix := t.doc.indexFor(it)
	at, off := ix.At(offset)
	if at == nil {
		return nil, fmt.Errorf("doc: text offset %d out of range", offset)
	}
	if off == 0 {
		return at, nil
	}
	_, right, err := t.doc.store.SplitItem(at, id.Clock(off))
	if err != nil {
		return nil, err
	}
	t.doc.dropIndex(it)
	return right, nil
}

// cleanCharEnd returns the item ending exactly at the visible offset.
func (t *Text) cleanCharEnd(it *item.Item, offset int) (*item.Item, error) {
	ix := t.doc.indexFor(it)
	at, off := ix.At(offset)
	if at == nil {
		return nil, fmt.Errorf("doc: text offset %d out of range", offset)
	}
	w := childWeight(it, at)
	if off == w-1 {
		return at, nil
	}
	left, _, err := t.doc.store.SplitItem(at, id.Clock(off+1))
	if err != nil {
		return nil, err
	}
	t.doc.dropIndex(it)
	return left, nil
}
