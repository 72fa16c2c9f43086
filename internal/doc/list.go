package doc

import (
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/item"
)

// List is an ordered collection of nodes. Index lookups go through the
// positional index; the chain stays authoritative.
type List struct {
	Node
}

func (l *List) Append(n *Node) error {
	it := l.item()
	if it == nil {
		return ErrDetached
	}
	if err := l.doc.attach(n, it, it.End); err != nil {
		return err
	}
	l.indexInsertTail(it, n)
	return nil
}

func (l *List) Prepend(n *Node) error {
	it := l.item()
	if it == nil {
		return ErrDetached
	}
	if err := l.doc.attach(n, it, nil); err != nil {
		return err
	}
	l.doc.dropIndex(it)
	return nil
}

// Insert places the node so it becomes the i-th visible element.
func (l *List) Insert(i int, n *Node) error {
	it := l.item()
	if it == nil {
		return ErrDetached
	}
	size := l.Size()
	if i <= 0 {
		return l.Prepend(n)
	}
	if i >= size {
		return l.Append(n)
	}

	ix := l.doc.indexFor(it)
	left, _ := ix.At(i - 1)
	if left == nil {
		return fmt.Errorf("doc: list index %d out of range", i)
	}
	if err := l.doc.attach(n, it, left); err != nil {
		return err
	}
	ix.Insert(i, n.item(), 1)
	return nil
}

// At returns the i-th visible element, nil when out of range.
func (l *List) At(i int) *Node {
	it := l.item()
	if it == nil || i < 0 {
		return nil
	}
	found, _ := l.doc.indexFor(it).At(i)
	if found == nil {
		return nil
	}
	return wrap(l.doc, found)
}

// Remove tombstones the i-th visible element.
func (l *List) Remove(i int) error {
	it := l.item()
	if it == nil {
		return ErrDetached
	}
	ix := l.doc.indexFor(it)
	found, _ := ix.At(i)
	if found == nil {
		return fmt.Errorf("doc: list index %d out of range", i)
	}
	if err := l.doc.deleteRange(found.Range()); err != nil {
		return err
	}
	ix.MarkDeleted(found)
	return nil
}

func (l *List) Size() int {
	it := l.item()
	if it == nil {
		return 0
	}
	return l.doc.indexFor(it).Len()
}

// Clear tombstones every visible element.
func (l *List) Clear() error {
	it := l.item()
	if it == nil {
		return ErrDetached
	}
	for _, c := range visibleChildren(it) {
		if err := l.doc.deleteRange(c.Range()); err != nil {
			return err
		}
	}
	l.doc.dropIndex(it)
	return nil
}

// Values returns handles to the visible elements in order.
func (l *List) Values() []*Node {
	it := l.item()
	if it == nil {
		return nil
	}
	children := visibleChildren(it)
	out := make([]*Node, len(children))
	for i, c := range children {
		out[i] = wrap(l.doc, c)
	}
	return out
}

// indexInsertTail keeps a fresh index current on append without a rebuild.
func (l *List) indexInsertTail(col *item.Item, n *Node) {
	ci := l.doc.indexes[col.ID()]
	if ci == nil || ci.gen != l.doc.gen {
		return
	}
	ci.ix.Insert(ci.ix.Len(), n.item(), 1)
}
