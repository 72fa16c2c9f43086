package item

import (
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
)

// Kind discriminates item payloads and link behavior.
type Kind uint8

const (
	KindRoot Kind = iota
	KindMap
	KindList
	KindText
	KindString
	KindAtom
	KindMark
	KindMove
	KindProxy
	KindDoc
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindText:
		return "text"
	case KindString:
		return "string"
	case KindAtom:
		return "atom"
	case KindMark:
		return "mark"
	case KindMove:
		return "move"
	case KindProxy:
		return "proxy"
	case KindDoc:
		return "doc"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsCollection reports whether items of this kind hold a child chain.
func (k Kind) IsCollection() bool {
	return k == KindRoot || k == KindMap || k == KindList || k == KindText
}

// Data is the wire-level item: the identity, origin links and payload fixed
// at creation. The only field ever rewritten afterwards is ParentID, which an
// integrator may fill in when the item was shipped with a neighbour origin
// only.
type Data struct {
	ID      id.Id
	Kind    Kind
	Content Content

	Field    id.FieldId
	HasField bool

	ParentID *id.Id
	LeftID   *id.Id
	RightID  *id.Id

	// TargetID names the relocated item for movers, and for proxies names
	// the same item from the origin position. MoverID back-links a proxy to
	// its mover.
	TargetID *id.Id
	MoverID  *id.Id
}

// Size is the number of clocks the item occupies: the byte length for
// strings, one for everything else.
func (d *Data) Size() id.Clock {
	if d.Kind == KindString {
		return id.Clock(len(d.Content.Str))
	}
	return 1
}

func (d *Data) Range() id.Range {
	return d.ID.Range(d.Size())
}

func (d *Data) EndId() id.Id {
	return d.Range().EndId()
}

func (d *Data) IsRoot() bool {
	return d.Kind == KindRoot || d.Kind == KindDoc
}

func (d *Data) Clone() *Data {
	out := *d
	out.ParentID = cloneId(d.ParentID)
	out.LeftID = cloneId(d.LeftID)
	out.RightID = cloneId(d.RightID)
	out.TargetID = cloneId(d.TargetID)
	out.MoverID = cloneId(d.MoverID)
	out.Content = d.Content.Clone()
	return &out
}

func cloneId(i *id.Id) *id.Id {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// Split cuts a string item's data after offset bytes. The right half's left
// origin is the last clock of the left half; the right half inherits the
// original right origin.
func (d *Data) Split(offset id.Clock) (*Data, *Data, error) {
	if d.Kind != KindString {
		return nil, nil, fmt.Errorf("item: cannot split %s item %s", d.Kind, d.ID)
	}
	if offset == 0 || offset >= d.Size() {
		return nil, nil, fmt.Errorf("item: cannot split item %s at %d", d.ID, offset)
	}

	left := d.Clone()
	left.Content = StringContent(d.Content.Str[:offset])

	right := d.Clone()
	right.ID = d.ID.Add(offset)
	right.Content = StringContent(d.Content.Str[offset:])
	leftEnd := left.EndId()
	right.LeftID = &leftEnd

	return left, right, nil
}

// Slice drops the first offset clocks, keeping the remainder addressed from
// its own sub-range. Used when a diff only needs the tail of a string item.
func (d *Data) Slice(offset id.Clock) (*Data, error) {
	if offset == 0 {
		return d.Clone(), nil
	}
	_, right, err := d.Split(offset)
	return right, err
}

// Adjust rewrites every id through the client translation tables and the
// field through the field tables, producing the same item in the recipient's
// numbering.
func (d *Data) Adjust(beforeClients, afterClients, beforeFields, afterFields *bimap.Table) (*Data, error) {
	out := d.Clone()

	var err error
	if out.ID, err = adjustId(d.ID, beforeClients, afterClients); err != nil {
		return nil, err
	}
	if out.ParentID, err = adjustOpt(d.ParentID, beforeClients, afterClients); err != nil {
		return nil, err
	}
	if out.LeftID, err = adjustOpt(d.LeftID, beforeClients, afterClients); err != nil {
		return nil, err
	}
	if out.RightID, err = adjustOpt(d.RightID, beforeClients, afterClients); err != nil {
		return nil, err
	}
	if out.TargetID, err = adjustOpt(d.TargetID, beforeClients, afterClients); err != nil {
		return nil, err
	}
	if out.MoverID, err = adjustOpt(d.MoverID, beforeClients, afterClients); err != nil {
		return nil, err
	}

	if d.HasField {
		name, ok := beforeFields.Key(d.Field)
		if !ok {
			return nil, fmt.Errorf("item: adjust: unknown field id %d", d.Field)
		}
		fid, ok := afterFields.Get(name)
		if !ok {
			return nil, fmt.Errorf("item: adjust: field %q missing from target table", name)
		}
		out.Field = fid
	}

	return out, nil
}

// AdjustId translates a single id between client tables.
func AdjustId(i id.Id, before, after *bimap.Table) (id.Id, error) {
	return adjustId(i, before, after)
}

func adjustId(i id.Id, before, after *bimap.Table) (id.Id, error) {
	client, ok := before.Key(i.Client)
	if !ok {
		return id.Id{}, fmt.Errorf("item: adjust: unknown client id %d", i.Client)
	}
	cid, ok := after.Get(client)
	if !ok {
		return id.Id{}, fmt.Errorf("item: adjust: client %q missing from target table", client)
	}
	return id.New(cid, i.Clock), nil
}

func adjustOpt(i *id.Id, before, after *bimap.Table) (*id.Id, error) {
	if i == nil {
		return nil, nil
	}
	out, err := adjustId(*i, before, after)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Item is a live CRDT node: immutable Data plus the mutable current links
// maintained by integration. Tombstoned items keep their links and stay in
// the chain.
type Item struct {
	Data *Data

	Parent *Item
	Left   *Item
	Right  *Item

	// Start and End bound the child chain of collection items.
	Start *Item
	End   *Item

	// Target and Mover resolve the move pair: a mover's Target is the item
	// it relocates, and a relocated item's Mover is its active mover.
	Target *Item
	Mover  *Item

	Deleted bool

	// Inactive marks a mover that lost a cross-replica cycle tie-break. It
	// stays in the store for convergence but has no visible effect.
	Inactive bool
}

func New(data *Data) *Item {
	return &Item{Data: data}
}

func (it *Item) ID() id.Id {
	return it.Data.ID
}

func (it *Item) Kind() Kind {
	return it.Data.Kind
}

func (it *Item) Size() id.Clock {
	return it.Data.Size()
}

func (it *Item) Range() id.Range {
	return it.Data.Range()
}

func (it *Item) EndId() id.Id {
	return it.Data.EndId()
}

// Moved reports whether the item is currently relocated by a live mover.
func (it *Item) Moved() bool {
	return it.Mover != nil && !it.Mover.Deleted && !it.Mover.Inactive
}

// Depth is the number of parent links to the root.
func (it *Item) Depth() int {
	depth := 0
	for p := it.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

func (it *Item) String() string {
	return fmt.Sprintf("%s %s", it.Data.Kind, it.Data.ID)
}
