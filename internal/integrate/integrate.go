// Package integrate places a remote item among the children of its parent so
// that every replica, integrating the same operations in any causal order,
// links them identically.
package integrate

import (
	"errors"
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// ErrConflictLoop reports that the conflict walk exceeded the safety bound.
// It always indicates a corrupted state: a cycle in the right links or a
// broken origin.
var ErrConflictLoop = errors.New("integrate: conflict walk exceeded iteration bound")

const maxConflictIterations = 10_000_000

// Integrate splices it between left and right under parent. left and right
// are the item's origins resolved against the local store (either may be
// nil); other clients' concurrent inserts may have drifted in between, and
// the conflict walk decides deterministically which of them the new item
// lands after. Returns the number of walk iterations.
func Integrate(it *item.Item, parent *item.Item, left, right *item.Item, clients *bimap.Table) (int, error) {
	var conflict *item.Item

	hasConflict := left == nil && right == nil
	if !hasConflict && left != nil && left.Right != right {
		hasConflict = true
	}
	if !hasConflict && right != nil && right.Left != left {
		hasConflict = true
	}

	if hasConflict {
		if left != nil {
			conflict = left.Right
		} else {
			conflict = parent.Start
		}
	}

	counter := 0
	conflictItems := id.NewSet()
	itemsBeforeOrigin := id.NewSet()

	for conflict != nil && conflict != right {
		counter++
		if counter > maxConflictIterations {
			return counter, fmt.Errorf("%w: item %s, conflict %s",
				ErrConflictLoop, it.ID(), conflict.ID())
		}

		itemsBeforeOrigin.Add(conflict.Range())
		conflictItems.Add(conflict.Range())

		conflictLeft := conflict.Data.LeftID
		itemLeft := it.Data.LeftID

		if id.EqOpt(conflictLeft, itemLeft) {
			// Same left origin: the global id order decides who sits
			// closer to it.
			if id.Compare(it.ID(), conflict.ID(), clients) > 0 {
				left = conflict
				conflictItems.Clear()
			} else if id.EqOpt(conflict.Data.RightID, it.Data.RightID) {
				break
			}
		} else if conflictLeft != nil && itemsBeforeOrigin.Contains(*conflictLeft) {
			// The conflict descends from an item before our origin; it
			// keeps the relative order it had on the sender.
			if !conflictItems.Contains(*conflictLeft) {
				left = conflict
				conflictItems.Clear()
			}
		} else {
			break
		}

		conflict = conflict.Right
	}

	if left != nil {
		integrateAfter(left, it)
	} else {
		integrateStart(it, parent)
	}

	if it.Right == nil {
		parent.End = it
	}

	return counter, nil
}

func integrateAfter(prev *item.Item, it *item.Item) {
	next := prev.Right

	prev.Right = it
	it.Left = prev

	if next != nil {
		next.Left = it
		it.Right = next
	}

	it.Parent = prev.Parent
	if it.Data.ParentID == nil && prev.Data.ParentID != nil {
		pid := *prev.Data.ParentID
		it.Data.ParentID = &pid
	}
	if it.Data.ParentID == nil && it.Parent != nil {
		pid := it.Parent.ID()
		it.Data.ParentID = &pid
	}
}

func integrateStart(it *item.Item, parent *item.Item) {
	if start := parent.Start; start != nil {
		start.Left = it
		it.Right = start
	}
	parent.Start = it
	it.Parent = parent
	if it.Data.ParentID == nil {
		pid := parent.ID()
		it.Data.ParentID = &pid
	}
}
