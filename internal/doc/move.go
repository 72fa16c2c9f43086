package doc

import (
	"go.uber.org/zap"

	"github.com/emrgen/nitro-sub000/internal/item"
)

// Move relocates a node so it becomes the i-th visible element of this
// list. The relocation is expressed as a mover item integrated at the
// destination and a proxy item left at the origin; the node itself never
// changes identity, so concurrent edits anchored to it stay valid.
func (l *List) Move(n *Node, i int) error {
	target := n.item()
	if target == nil {
		return ErrDetached
	}
	dest := l.item()
	if dest == nil {
		return ErrDetached
	}

	// Reject a destination inside the moved subtree before touching
	// anything.
	for p := dest; p != nil; p = effectiveParent(p) {
		if p == target {
			l.doc.metrics.MovesDropped.Inc()
			return ErrCycle
		}
	}

	origin := target.Parent

	// A previous move of the same node is superseded: tombstone its mover
	// so deleting the new mover reverts to the origin position, not to the
	// stale destination.
	if prev := target.Mover; prev != nil && !prev.Deleted && !prev.Inactive {
		if err := l.doc.deleteRange(prev.Range()); err != nil {
			return err
		}
	}

	targetId := target.ID()
	mover := &Node{doc: l.doc, data: &item.Data{
		Kind:     item.KindMove,
		Content:  item.NullContent(),
		TargetID: &targetId,
	}}

	left, err := l.moveAnchor(dest, target, i)
	if err != nil {
		return err
	}
	if err := l.doc.attach(mover, dest, left); err != nil {
		return err
	}
	moverItem := mover.item()
	moverId := moverItem.ID()

	proxy := &Node{doc: l.doc, data: &item.Data{
		Kind:     item.KindProxy,
		Content:  item.NullContent(),
		TargetID: &targetId,
		MoverID:  &moverId,
	}}
	if err := l.doc.attach(proxy, origin, target); err != nil {
		return err
	}
	proxyItem := proxy.item()

	moverItem.Target = target
	proxyItem.Target = target
	proxyItem.Mover = moverItem
	target.Mover = moverItem

	l.doc.dropIndex(dest)
	if origin != nil {
		l.doc.dropIndex(origin)
	}

	l.doc.log.WithDocID(l.doc.opts.GUID).Debug("node moved",
		zap.String("target", targetId.String()),
		zap.String("mover", moverId.String()))
	return nil
}

// moveAnchor resolves the chain item a mover goes after so the target lands
// at visible position i, counted with the target already gone from its old
// slot.
func (l *List) moveAnchor(dest, target *item.Item, i int) (*item.Item, error) {
	if i <= 0 {
		return nil, nil
	}
	children := visibleChildren(dest)
	filtered := children[:0]
	for _, c := range children {
		if c != target {
			filtered = append(filtered, c)
		}
	}
	children = filtered
	if i >= len(children) {
		return dest.End, nil
	}
	prev := children[i-1]
	// The anchor must be the chain item occupying the slot: a relocated
	// element is represented there by its mover.
	if prev.Moved() && prev.Mover.Parent == dest {
		return prev.Mover, nil
	}
	return prev, nil
}

// RevertMove deletes the node's active mover, restoring its origin
// position.
func (l *List) RevertMove(n *Node) error {
	target := n.item()
	if target == nil {
		return ErrDetached
	}
	mover := target.Mover
	if mover == nil || mover.Deleted || mover.Inactive {
		return nil
	}
	if err := l.doc.deleteRange(mover.Range()); err != nil {
		return err
	}
	if p := mover.Parent; p != nil {
		l.doc.dropIndex(p)
	}
	if p := target.Parent; p != nil {
		l.doc.dropIndex(p)
	}
	return nil
}
