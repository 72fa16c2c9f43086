// Package tx applies an adjusted diff to a document store atomically:
// operations are queued per client, promoted when their dependencies
// resolve, integrated, and finally tombstoned by the carried deletes.
package tx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/emrgen/nitro-sub000/internal/diff"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/integrate"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/logging"
	"github.com/emrgen/nitro-sub000/internal/monitoring"
	"github.com/emrgen/nitro-sub000/internal/store"
)

type Transaction struct {
	store *store.DocStore
	diff  *diff.Diff

	ready        []*item.Data
	readyIDs     *id.Set
	readyDeletes []store.Delete

	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New adjusts the incoming diff into the local numbering and wraps it in a
// transaction. The store is untouched until Commit.
func New(ds *store.DocStore, d *diff.Diff, log *logging.Logger) (*Transaction, error) {
	adjusted, err := d.Adjust(ds)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Transaction{
		store:    ds,
		diff:     adjusted,
		readyIDs: id.NewSet(),
		log:      log,
		metrics:  monitoring.Default(),
	}, nil
}

// Commit runs prepare then apply. On error the store may hold partial
// mutations; the caller owns the rollback snapshot.
func (t *Transaction) Commit() error {
	if err := t.prepare(); err != nil {
		return err
	}
	if err := t.apply(); err != nil {
		return err
	}
	t.metrics.DiffsApplied.Inc()
	t.metrics.PendingDepth.Set(float64(t.store.Pending.Len()))
	return nil
}

// prepare queues every carried operation and promotes the ready ones: an
// item is ready when each declared dependency is already in the store or
// ahead of it in the ready queue. Per-client queues are clock ordered, so
// promotion preserves causal order within a client. Items with unmet
// dependencies stay pending for a future diff; that is not an error.
func (t *Transaction) prepare() error {
	pending := t.store.Pending

	for _, cid := range t.diff.Clients() {
		for _, data := range t.diff.Items[cid] {
			pending.Insert(data)
		}
	}
	for _, cid := range t.diff.DeleteClients() {
		for _, del := range t.diff.Deletes[cid] {
			pending.InsertDelete(del)
		}
	}

	progress := true
	for progress {
		progress = false
		for _, cid := range pending.Clients() {
			for {
				head := pending.Head(cid)
				if head == nil {
					break
				}
				if t.store.Contains(head.ID) {
					pending.Pop(cid)
					progress = true
					continue
				}
				if !t.isReady(head) {
					break
				}
				pending.Pop(cid)
				t.ready = append(t.ready, head)
				t.readyIDs.Add(head.Range())
				progress = true
			}
		}
	}

	for _, del := range pending.TakeDeletes() {
		if t.covers(del.Range) {
			t.readyDeletes = append(t.readyDeletes, del)
		} else {
			pending.InsertDelete(del)
		}
	}

	return nil
}

func (t *Transaction) isReady(data *item.Data) bool {
	if data.IsRoot() {
		return true
	}
	deps := []*id.Id{data.ParentID, data.LeftID, data.RightID, data.TargetID, data.MoverID}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		if !t.store.Contains(*dep) && !t.readyIDs.Contains(*dep) {
			return false
		}
	}
	return true
}

func (t *Transaction) covers(r id.Range) bool {
	have := func(i id.Id) bool {
		return t.store.Contains(i) || t.readyIDs.Contains(i)
	}
	return have(r.StartId()) && have(r.EndId())
}

// apply merges the tables, drains the ready queue through the integrator in
// promotion order, then applies the ready deletes by range.
func (t *Transaction) apply() error {
	t.store.Fields = t.store.Fields.Merge(t.diff.Fields)
	t.store.State.Clients = t.store.State.Clients.Merge(t.diff.State.Clients)

	for _, data := range t.ready {
		if t.store.Contains(data.ID) {
			continue
		}
		if err := t.integrateOne(data); err != nil {
			return err
		}
	}

	for _, del := range t.readyDeletes {
		if err := t.store.ApplyDelete(del); err != nil {
			return err
		}
		t.metrics.DeletesApplied.Inc()
	}

	return nil
}

func (t *Transaction) integrateOne(data *item.Data) error {
	it := item.New(data)

	if data.IsRoot() {
		if t.store.Find(data.ID) == nil {
			return t.store.Insert(it)
		}
		return nil
	}

	var left, right *item.Item
	var err error
	if data.LeftID != nil {
		if left, err = t.store.FindCleanEnd(*data.LeftID); err != nil {
			return err
		}
	}
	if data.RightID != nil {
		if right, err = t.store.FindCleanStart(*data.RightID); err != nil {
			return err
		}
	}

	var parent *item.Item
	switch {
	case data.ParentID != nil:
		parent = t.store.Find(*data.ParentID)
	case left != nil:
		parent = left.Parent
	case right != nil:
		parent = right.Parent
	}
	if parent == nil {
		return fmt.Errorf("%w: item %s has no resolvable parent", store.ErrStructural, data.ID)
	}

	steps, err := integrate.Integrate(it, parent, left, right, t.store.State.Clients)
	t.metrics.ConflictWalkLength.Observe(float64(steps))
	if err != nil {
		return err
	}
	if err := t.store.Insert(it); err != nil {
		return err
	}
	t.metrics.ItemsIntegrated.Inc()

	t.link(it)
	return nil
}

// link resolves the move pair references once the item is stored.
func (t *Transaction) link(it *item.Item) {
	data := it.Data
	switch data.Kind {
	case item.KindMove:
		if data.TargetID == nil {
			return
		}
		target := t.store.Find(*data.TargetID)
		if target == nil {
			return
		}
		it.Target = target
		if t.createsCycle(it, target) {
			t.dropCycleLoser(it, target)
		} else {
			t.activateMover(target, it)
		}
	case item.KindProxy:
		if data.TargetID != nil {
			it.Target = t.store.Find(*data.TargetID)
		}
		if data.MoverID != nil {
			it.Mover = t.store.Find(*data.MoverID)
		}
	}
}

// activateMover installs a mover on its target. Two live movers for one
// target means two replicas moved it concurrently; the greater id wins and
// the other is deactivated, identically on every replica.
func (t *Transaction) activateMover(target, mover *item.Item) {
	cur := target.Mover
	if cur != nil && cur != mover && !cur.Deleted && !cur.Inactive {
		if id.Compare(mover.ID(), cur.ID(), t.store.State.Clients) > 0 {
			cur.Inactive = true
			target.Mover = mover
		} else {
			mover.Inactive = true
		}
		return
	}
	target.Mover = mover
}

// createsCycle reports whether activating the mover would place the target
// above itself: the mover's destination parent sits inside the target's
// subtree.
func (t *Transaction) createsCycle(mover, target *item.Item) bool {
	for p := mover.Parent; p != nil; p = effectiveParent(p) {
		if p == target {
			return true
		}
	}
	return false
}

// effectiveParent follows the visible tree: a moved item hangs under its
// mover's parent.
func effectiveParent(it *item.Item) *item.Item {
	if it.Moved() {
		return it.Mover.Parent
	}
	return it.Parent
}

// dropCycleLoser breaks a cross-replica move cycle: of the movers that form
// it, the one with the greatest id in the global order is deactivated. Every
// replica sees the same mover set once converged, so every replica picks the
// same loser.
func (t *Transaction) dropCycleLoser(mover, target *item.Item) {
	loser := mover
	for p := mover.Parent; p != nil && p != target; p = effectiveParent(p) {
		if p.Moved() {
			if id.Compare(p.Mover.ID(), loser.ID(), t.store.State.Clients) > 0 {
				loser = p.Mover
			}
		}
	}
	if target.Moved() {
		if id.Compare(target.Mover.ID(), loser.ID(), t.store.State.Clients) > 0 {
			loser = target.Mover
		}
	}

	loser.Inactive = true
	t.metrics.MovesDropped.Inc()
	t.log.WithDocID(t.store.GUID).Warn("move dropped by cycle prevention",
		zap.String("mover", loser.ID().String()))

	if loser != mover {
		t.activateMover(target, mover)
	}
}
