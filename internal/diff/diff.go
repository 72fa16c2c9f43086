// Package diff computes and reshapes the set of operations one replica has
// and another is missing.
package diff

import (
	"sort"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/state"
	"github.com/emrgen/nitro-sub000/internal/store"
)

// Diff carries the items and deletes a sender believes a receiver is
// missing, together with the tables needed to interpret them: the sender's
// field table, client table and state vector. All ids inside Items and
// Deletes use the sender's numbering until Adjust rewrites them.
type Diff struct {
	GUID      string
	CreatedBy string
	Fields    *bimap.Table
	State     *state.State
	Items     map[id.ClientId][]*item.Data
	Deletes   map[id.ClientId][]store.Delete
}

func New(guid, createdBy string) *Diff {
	return &Diff{
		GUID:      guid,
		CreatedBy: createdBy,
		Fields:    bimap.New(),
		State:     state.New(),
		Items:     make(map[id.ClientId][]*item.Data),
		Deletes:   make(map[id.ClientId][]store.Delete),
	}
}

// FromStore collects everything in ds that lies beyond the peer state: for
// each client, the items and deletes with clocks strictly greater than the
// peer's high-water mark for that client. An item straddling the mark is
// sliced so only the unseen tail ships.
func FromStore(ds *store.DocStore, peer *state.State) (*Diff, error) {
	out := New(ds.GUID, ds.CreatedBy)
	out.Fields = ds.Fields.Clone()
	out.State = ds.State.Clone()

	for _, cid := range ds.Items.Clients() {
		client, ok := ds.State.Clients.Key(cid)
		if !ok {
			continue
		}
		peerClock := peer.ClockOf(client)
		for _, it := range ds.Items.Items(cid) {
			r := it.Range()
			if r.End <= peerClock {
				continue
			}
			data := it.Data
			if r.Start <= peerClock {
				tail, err := data.Slice(peerClock - r.Start + 1)
				if err != nil {
					return nil, err
				}
				out.Items[cid] = append(out.Items[cid], tail)
				continue
			}
			out.Items[cid] = append(out.Items[cid], data.Clone())
		}
	}

	for _, cid := range ds.Deletes.Clients() {
		client, ok := ds.State.Clients.Key(cid)
		if !ok {
			continue
		}
		peerClock := peer.ClockOf(client)
		for _, d := range ds.Deletes.Deletes(cid) {
			if d.ID.Clock > peerClock {
				out.Deletes[cid] = append(out.Deletes[cid], d)
			}
		}
	}

	return out, nil
}

// Adjust rewrites the diff into the recipient's numbering: client ids via
// the sender table aligned against the local one, field ids likewise. Only
// an adjusted diff may be compared against the recipient's store.
func (d *Diff) Adjust(local *store.DocStore) (*Diff, error) {
	adjState := d.State.AsPer(local.State)
	adjFields := d.Fields.AsPer(local.Fields)

	out := New(d.GUID, d.CreatedBy)
	out.Fields = adjFields
	out.State = adjState

	for _, datas := range d.Items {
		for _, data := range datas {
			adj, err := data.Adjust(d.State.Clients, adjState.Clients, d.Fields, adjFields)
			if err != nil {
				return nil, err
			}
			out.Items[adj.ID.Client] = append(out.Items[adj.ID.Client], adj)
		}
	}
	for cid := range out.Items {
		datas := out.Items[cid]
		sort.Slice(datas, func(i, j int) bool { return datas[i].ID.Clock < datas[j].ID.Clock })
	}

	for _, deletes := range d.Deletes {
		for _, del := range deletes {
			adj, err := del.Adjust(d.State.Clients, adjState.Clients)
			if err != nil {
				return nil, err
			}
			out.Deletes[adj.ID.Client] = append(out.Deletes[adj.ID.Client], adj)
		}
	}
	for cid := range out.Deletes {
		deletes := out.Deletes[cid]
		sort.Slice(deletes, func(i, j int) bool { return deletes[i].ID.Clock < deletes[j].ID.Clock })
	}

	return out, nil
}

func (d *Diff) IsEmpty() bool {
	return d.ItemCount() == 0 && d.DeleteCount() == 0
}

func (d *Diff) ItemCount() int {
	n := 0
	for _, datas := range d.Items {
		n += len(datas)
	}
	return n
}

func (d *Diff) DeleteCount() int {
	n := 0
	for _, deletes := range d.Deletes {
		n += len(deletes)
	}
	return n
}

// HasMoves reports whether any carried item is a mover or proxy.
func (d *Diff) HasMoves() bool {
	for _, datas := range d.Items {
		for _, data := range datas {
			if data.Kind == item.KindMove || data.Kind == item.KindProxy {
				return true
			}
		}
	}
	return false
}

// Clients returns the item-map client ids in ascending order.
func (d *Diff) Clients() []id.ClientId {
	out := make([]id.ClientId, 0, len(d.Items))
	for cid := range d.Items {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DeleteClients returns the delete-map client ids in ascending order.
func (d *Diff) DeleteClients() []id.ClientId {
	out := make([]id.ClientId, 0, len(d.Deletes))
	for cid := range d.Deletes {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal compares two diffs structurally, ignoring map iteration order.
func (d *Diff) Equal(other *Diff) bool {
	if d.GUID != other.GUID || d.CreatedBy != other.CreatedBy {
		return false
	}
	if !d.State.Equal(other.State) {
		return false
	}
	if d.ItemCount() != other.ItemCount() || d.DeleteCount() != other.DeleteCount() {
		return false
	}
	for cid, datas := range d.Items {
		theirs := other.Items[cid]
		if len(theirs) != len(datas) {
			return false
		}
		for i, data := range datas {
			if !dataEqual(data, theirs[i]) {
				return false
			}
		}
	}
	for cid, deletes := range d.Deletes {
		theirs := other.Deletes[cid]
		if len(theirs) != len(deletes) {
			return false
		}
		for i, del := range deletes {
			if del != theirs[i] {
				return false
			}
		}
	}
	return true
}

func dataEqual(a, b *item.Data) bool {
	if a.ID != b.ID || a.Kind != b.Kind {
		return false
	}
	if a.HasField != b.HasField || (a.HasField && a.Field != b.Field) {
		return false
	}
	if !id.EqOpt(a.ParentID, b.ParentID) || !id.EqOpt(a.LeftID, b.LeftID) ||
		!id.EqOpt(a.RightID, b.RightID) || !id.EqOpt(a.TargetID, b.TargetID) ||
		!id.EqOpt(a.MoverID, b.MoverID) {
		return false
	}
	return a.Content.Equal(b.Content)
}
