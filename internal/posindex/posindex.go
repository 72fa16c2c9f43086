// Package posindex maintains the in-order sequence of a collection's visible
// items for O(log n) position lookups. It is a cache: the authoritative
// order is always the item chain, and callers rebuild the index whenever the
// chain changes underneath them.
package posindex

import (
	"math/rand"

	"github.com/emrgen/nitro-sub000/internal/item"
)

type node struct {
	it     *item.Item
	prio   uint64
	weight int
	total  int
	left   *node
	right  *node
	parent *node
}

func total(n *node) int {
	if n == nil {
		return 0
	}
	return n.total
}

// Index is a treap ordered by sequence position, with subtree weights for
// positional descent. Weights are the visible span of each entry: one for
// elements, the byte length for string runs.
type Index struct {
	root  *node
	nodes map[*item.Item]*node
	rnd   *rand.Rand
}

func New() *Index {
	return &Index{
		nodes: make(map[*item.Item]*node),
		// The priority stream only shapes the treap; determinism across
		// replicas is irrelevant because the index never leaves a replica.
		rnd: rand.New(rand.NewSource(1)),
	}
}

// Len is the total visible weight of the sequence.
func (ix *Index) Len() int {
	return total(ix.root)
}

// Count is the number of indexed items.
func (ix *Index) Count() int {
	return len(ix.nodes)
}

func (ix *Index) update(n *node) {
	n.total = total(n.left) + total(n.right) + n.weight
	if n.left != nil {
		n.left.parent = n
	}
	if n.right != nil {
		n.right.parent = n
	}
}

func (ix *Index) merge(a, b *node) *node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.prio > b.prio {
		a.right = ix.merge(a.right, b)
		ix.update(a)
		return a
	}
	b.left = ix.merge(a, b.left)
	ix.update(b)
	return b
}

// split cuts the sequence so the left tree holds the first k weight units.
// Cuts must fall on entry boundaries.
func (ix *Index) split(n *node, k int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	lt := total(n.left)
	if k <= lt {
		l, r := ix.split(n.left, k)
		n.left = r
		ix.update(n)
		if l != nil {
			l.parent = nil
		}
		return l, n
	}
	kk := k - lt - n.weight
	if kk < 0 {
		kk = 0
	}
	l, r := ix.split(n.right, kk)
	n.right = l
	ix.update(n)
	if r != nil {
		r.parent = nil
	}
	return n, r
}

// Insert places an item at the given weight position with the given span.
func (ix *Index) Insert(pos int, it *item.Item, weight int) {
	if _, ok := ix.nodes[it]; ok {
		return
	}
	n := &node{it: it, prio: ix.rnd.Uint64(), weight: weight}
	ix.update(n)
	ix.nodes[it] = n

	l, r := ix.split(ix.root, pos)
	ix.root = ix.merge(ix.merge(l, n), r)
	if ix.root != nil {
		ix.root.parent = nil
	}
}

// Remove drops an item from the sequence.
func (ix *Index) Remove(it *item.Item) {
	n, ok := ix.nodes[it]
	if !ok {
		return
	}
	pos := ix.IndexOf(it)
	l, r := ix.split(ix.root, pos)
	_, r = ix.split(r, n.weight)
	ix.root = ix.merge(l, r)
	if ix.root != nil {
		ix.root.parent = nil
	}
	delete(ix.nodes, it)
}

// MarkDeleted removes a tombstoned item from the visible sequence.
func (ix *Index) MarkDeleted(it *item.Item) {
	ix.Remove(it)
}

// At returns the entry spanning the weight position, and the offset into it.
func (ix *Index) At(pos int) (*item.Item, int) {
	n := ix.root
	for n != nil {
		lt := total(n.left)
		if pos < lt {
			n = n.left
			continue
		}
		pos -= lt
		if pos < n.weight {
			return n.it, pos
		}
		pos -= n.weight
		n = n.right
	}
	return nil, 0
}

// IndexOf returns the weight position where the item starts, or -1.
func (ix *Index) IndexOf(it *item.Item) int {
	n, ok := ix.nodes[it]
	if !ok {
		return -1
	}
	pos := total(n.left)
	for n.parent != nil {
		if n == n.parent.right {
			pos += total(n.parent.left) + n.parent.weight
		}
		n = n.parent
	}
	return pos
}

// Contains reports whether the item is indexed.
func (ix *Index) Contains(it *item.Item) bool {
	_, ok := ix.nodes[it]
	return ok
}
