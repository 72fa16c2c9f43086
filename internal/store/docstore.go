package store

import (
	"errors"
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/state"
)

// ErrStructural marks a violated integration invariant. A transaction that
// hits it must abort and roll back.
var ErrStructural = errors.New("store: structural error")

// DocStore owns everything a document replica knows: the item graph, the
// tombstone records, the pending queue, the interning tables and the state
// vector. It is accessed through a single owner per document; the base model
// shares nothing across goroutines.
type DocStore struct {
	GUID      string
	CreatedBy string

	// Client is the local replica identity; ClientId its local numbering.
	Client   string
	ClientId id.ClientId

	clock id.Clock

	State   *state.State
	Fields  *bimap.Table
	Items   *ItemStore
	Deletes *DeleteStore
	Pending *PendingStore
}

func NewDocStore(guid, client, createdBy string) *DocStore {
	s := &DocStore{
		GUID:      guid,
		CreatedBy: createdBy,
		Client:    client,
		State:     state.New(),
		Fields:    bimap.New(),
		Items:     NewItemStore(),
		Deletes:   NewDeleteStore(),
		Pending:   NewPendingStore(),
	}
	// The creator numbers first so the root id is (creator, 1) on every
	// replica that loads this document.
	s.State.GetOrInsert(createdBy)
	s.ClientId, _ = s.State.GetOrInsert(client)
	return s
}

// UpdateClient switches the local identity to a new client, keeping the item
// graph. Used after a deep clone to turn a copy into an independent replica.
func (s *DocStore) UpdateClient(client string) {
	s.Client = client
	s.ClientId, _ = s.State.GetOrInsert(client)
	s.clock = s.State.Get(s.ClientId)
}

// Take allocates n fresh clocks for the local client and returns the id of
// the first.
func (s *DocStore) Take(n id.Clock) id.Id {
	if hw := s.State.Get(s.ClientId); hw > s.clock {
		s.clock = hw
	}
	first := s.clock + 1
	s.clock += n
	return id.New(s.ClientId, first)
}

// RootId is the id of the document root: the creator's first clock.
func (s *DocStore) RootId() id.Id {
	cid, _ := s.State.Clients.Get(s.CreatedBy)
	return id.New(cid, 1)
}

func (s *DocStore) Root() *item.Item {
	return s.Items.Find(s.RootId())
}

func (s *DocStore) Insert(it *item.Item) error {
	if err := s.Items.Insert(it); err != nil {
		return err
	}
	r := it.Range()
	s.State.UpdateMax(r.Client, r.End)
	return nil
}

func (s *DocStore) Find(i id.Id) *item.Item {
	return s.Items.Find(i)
}

func (s *DocStore) Contains(i id.Id) bool {
	return s.Items.Contains(i)
}

// SplitItem splits a string item in place: the two halves replace it in the
// store and the chain, keeping every link and the tombstone flag.
func (s *DocStore) SplitItem(it *item.Item, offset id.Clock) (*item.Item, *item.Item, error) {
	leftData, rightData, err := it.Data.Split(offset)
	if err != nil {
		return nil, nil, err
	}

	left := item.New(leftData)
	right := item.New(rightData)

	left.Parent = it.Parent
	right.Parent = it.Parent
	left.Deleted = it.Deleted
	right.Deleted = it.Deleted
	left.Mover = it.Mover
	right.Mover = it.Mover

	left.Left = it.Left
	left.Right = right
	right.Left = left
	right.Right = it.Right

	if it.Left != nil {
		it.Left.Right = left
	}
	if it.Right != nil {
		it.Right.Left = right
	}

	if p := it.Parent; p != nil {
		if p.Start == it {
			p.Start = left
		}
		if p.End == it {
			p.End = right
		}
	}

	if err := s.Items.Replace(it, left, right); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// FindCleanEnd returns the item ending exactly at i, splitting the enclosing
// item when i falls mid-range. Used to resolve a left origin.
func (s *DocStore) FindCleanEnd(i id.Id) (*item.Item, error) {
	it := s.Items.Find(i)
	if it == nil {
		return nil, fmt.Errorf("%w: missing item %s", ErrStructural, i)
	}
	r := it.Range()
	if r.End == i.Clock {
		return it, nil
	}
	left, _, err := s.SplitItem(it, i.Clock-r.Start+1)
	if err != nil {
		return nil, err
	}
	return left, nil
}

// FindCleanStart returns the item starting exactly at i, splitting the
// enclosing item when i falls mid-range. Used to resolve a right origin.
func (s *DocStore) FindCleanStart(i id.Id) (*item.Item, error) {
	it := s.Items.Find(i)
	if it == nil {
		return nil, fmt.Errorf("%w: missing item %s", ErrStructural, i)
	}
	r := it.Range()
	if r.Start == i.Clock {
		return it, nil
	}
	_, right, err := s.SplitItem(it, i.Clock-r.Start)
	if err != nil {
		return nil, err
	}
	return right, nil
}

// ApplyDelete tombstones every item covered by the delete's range, splitting
// boundary items so the cut is exact, and records the operation. Applying
// the same operation twice is a no-op.
func (s *DocStore) ApplyDelete(d Delete) error {
	if s.Deletes.ContainsOp(d.ID) {
		return nil
	}

	clock := d.Range.Start
	for clock <= d.Range.End {
		it := s.Items.Find(id.New(d.Range.Client, clock))
		if it == nil {
			return fmt.Errorf("%w: delete %s covers missing id (%d, %d)",
				ErrStructural, d.Range, d.Range.Client, clock)
		}
		r := it.Range()
		if r.Start < clock {
			_, right, err := s.SplitItem(it, clock-r.Start)
			if err != nil {
				return err
			}
			it = right
			r = it.Range()
		}
		if r.End > d.Range.End {
			left, _, err := s.SplitItem(it, d.Range.End-r.Start+1)
			if err != nil {
				return err
			}
			it = left
			r = it.Range()
		}
		it.Deleted = true
		clock = r.End + 1
	}

	s.Deletes.Insert(d)
	s.State.UpdateMax(d.ID.Client, d.ID.Clock)
	return nil
}

// VisibleSize counts the clocks of a collection's children that are not
// tombstoned, skipping proxies, marks and relocated items. A live mover counts
// the clocks of its target in its place.
func VisibleSize(parent *item.Item) int {
	n := 0
	for c := parent.Start; c != nil; c = c.Right {
		if c.Deleted || c.Moved() {
			continue
		}
		switch c.Kind() {
		case item.KindProxy, item.KindMark:
			continue
		case item.KindMove:
			if !c.Inactive && c.Target != nil && !c.Target.Deleted && c.Target.Mover == c {
				n += int(c.Target.Size())
			}
		default:
			n += int(c.Size())
		}
	}
	return n
}

// Clone deep-copies the store: data, links, tombstones, tables and pending
// queue. The clone shares nothing with the original.
func (s *DocStore) Clone() *DocStore {
	out := &DocStore{
		GUID:      s.GUID,
		CreatedBy: s.CreatedBy,
		Client:    s.Client,
		ClientId:  s.ClientId,
		clock:     s.clock,
		State:     s.State.Clone(),
		Fields:    s.Fields.Clone(),
		Items:     NewItemStore(),
		Deletes:   NewDeleteStore(),
		Pending:   NewPendingStore(),
	}

	mapping := make(map[*item.Item]*item.Item)
	for _, cid := range s.Items.Clients() {
		for _, it := range s.Items.Items(cid) {
			clone := item.New(it.Data.Clone())
			clone.Deleted = it.Deleted
			clone.Inactive = it.Inactive
			mapping[it] = clone
		}
	}
	remap := func(it *item.Item) *item.Item {
		if it == nil {
			return nil
		}
		return mapping[it]
	}
	for old, clone := range mapping {
		clone.Parent = remap(old.Parent)
		clone.Left = remap(old.Left)
		clone.Right = remap(old.Right)
		clone.Start = remap(old.Start)
		clone.End = remap(old.End)
		clone.Target = remap(old.Target)
		clone.Mover = remap(old.Mover)
	}
	for _, cid := range s.Items.Clients() {
		for _, it := range s.Items.Items(cid) {
			// Inserts stay ordered because the source is ordered.
			_ = out.Items.Insert(mapping[it])
		}
	}

	for _, cid := range s.Deletes.Clients() {
		for _, d := range s.Deletes.Deletes(cid) {
			out.Deletes.Insert(d)
		}
	}
	for _, cid := range s.Pending.Clients() {
		queue := s.Pending.items[cid]
		for _, data := range queue {
			out.Pending.Insert(data.Clone())
		}
	}
	for _, d := range s.Pending.deletes {
		out.Pending.InsertDelete(d)
	}

	return out
}
