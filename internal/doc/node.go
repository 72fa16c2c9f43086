package doc

import (
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// Node is a handle to one item of the document tree. Handles stay valid
// across rollbacks and clones because they resolve the item through the
// store by id on every use.
type Node struct {
	doc      *Document
	data     *item.Data
	attached bool
}

func (n *Node) item() *item.Item {
	if !n.attached {
		return nil
	}
	return n.doc.store.Find(n.data.ID)
}

func (n *Node) ID() id.Id {
	return n.data.ID
}

func (n *Node) Kind() item.Kind {
	return n.data.Kind
}

func (n *Node) Attached() bool {
	return n.attached
}

func (n *Node) Deleted() bool {
	it := n.item()
	return it == nil || it.Deleted
}

// Delete tombstones the node's full id range. The item stays linked in the
// chain; it just disappears from visible queries.
func (n *Node) Delete() error {
	it := n.item()
	if it == nil {
		return ErrDetached
	}
	if err := n.doc.deleteRange(n.data.Range()); err != nil {
		return err
	}
	if p := it.Parent; p != nil {
		n.doc.dropIndex(p)
	}
	return nil
}

func wrap(d *Document, it *item.Item) *Node {
	return &Node{doc: d, data: it.Data, attached: true}
}

func (n *Node) AsList() *List {
	if n == nil || n.data.Kind != item.KindList {
		return nil
	}
	return &List{*n}
}

func (n *Node) AsMap() *Map {
	if n == nil || n.data.Kind != item.KindMap {
		return nil
	}
	return &Map{*n}
}

func (n *Node) AsText() *Text {
	if n == nil || n.data.Kind != item.KindText {
		return nil
	}
	return &Text{*n}
}

func (n *Node) AsString() *Str {
	if n == nil || n.data.Kind != item.KindString {
		return nil
	}
	return &Str{*n}
}

func (n *Node) AsAtom() *Atom {
	if n == nil || n.data.Kind != item.KindAtom {
		return nil
	}
	return &Atom{*n}
}

// visibleChildren walks the chain and yields what a reader sees: tombstones,
// proxies and marks are skipped, relocated items appear at their mover's
// position instead of their own.
func visibleChildren(parent *item.Item) []*item.Item {
	var out []*item.Item
	for c := parent.Start; c != nil; c = c.Right {
		switch c.Kind() {
		case item.KindProxy, item.KindMark:
			continue
		case item.KindMove:
			if c.Deleted || c.Inactive {
				continue
			}
			if t := c.Target; t != nil && !t.Deleted && t.Mover == c {
				out = append(out, t)
			}
		default:
			if c.Deleted || c.Moved() {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// effectiveParent follows the visible tree, jumping from a moved item to its
// mover's parent.
func effectiveParent(it *item.Item) *item.Item {
	if it.Moved() {
		return it.Mover.Parent
	}
	return it.Parent
}
