// Package doc assembles the CRDT engine into a document: a tree of maps,
// lists, text and atoms edited locally and reconciled with peers by
// exchanging diffs.
package doc

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emrgen/nitro-sub000/internal/diff"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/logging"
	"github.com/emrgen/nitro-sub000/internal/monitoring"
	"github.com/emrgen/nitro-sub000/internal/posindex"
	"github.com/emrgen/nitro-sub000/internal/state"
	"github.com/emrgen/nitro-sub000/internal/store"
	"github.com/emrgen/nitro-sub000/internal/tx"
)

// ErrCycle reports a move whose destination lies inside the moved subtree.
// The offending move is dropped; nothing else is affected.
var ErrCycle = errors.New("doc: move would create a cycle")

// ErrDetached reports an operation on a node that is not part of the
// document tree yet.
var ErrDetached = errors.New("doc: node is not attached")

type Options struct {
	// GUID identifies the document across replicas. Generated when empty.
	GUID string
	// Client is the local replica identity, a UUID string. Generated when
	// empty.
	Client string
	// CreatedBy is the client that created the document. Defaults to
	// Client; replicas loading an existing document carry the creator's
	// identity so the root id matches everywhere.
	CreatedBy string

	// LogLevel enables logging when non-empty (e.g. "info"). LogFormat
	// defaults to "json".
	LogLevel  string
	LogFormat string
}

func (o Options) withDefaults() Options {
	if o.Client == "" {
		o.Client = uuid.NewString()
	}
	if o.GUID == "" {
		o.GUID = uuid.NewString()
	}
	if o.CreatedBy == "" {
		o.CreatedBy = o.Client
	}
	if o.LogFormat == "" {
		o.LogFormat = "json"
	}
	return o
}

// Document is a self-contained replica. It owns its store exclusively; all
// operations run to completion without yielding, and nothing is shared
// across goroutines.
type Document struct {
	opts  Options
	store *store.DocStore

	committed *store.DocStore

	log     *logging.Logger
	metrics *monitoring.Metrics

	// gen invalidates positional indexes whenever the chain changes
	// outside the handle-local edit path.
	gen     uint64
	indexes map[id.Id]*colIndex
}

type colIndex struct {
	ix  *posindex.Index
	gen uint64
}

func New(opts Options) (*Document, error) {
	opts = opts.withDefaults()

	log := logging.Nop()
	if opts.LogLevel != "" {
		var err error
		if log, err = logging.NewLogger(opts.LogLevel, opts.LogFormat); err != nil {
			return nil, err
		}
	}

	ds := store.NewDocStore(opts.GUID, opts.Client, opts.CreatedBy)

	d := &Document{
		opts:    opts,
		store:   ds,
		log:     log,
		metrics: monitoring.Default(),
		indexes: make(map[id.Id]*colIndex),
	}

	root := item.New(&item.Data{
		ID:      ds.RootId(),
		Kind:    item.KindRoot,
		Content: item.NullContent(),
	})
	if err := ds.Insert(root); err != nil {
		return nil, err
	}

	d.committed = ds.Clone()
	return d, nil
}

// FromDiff builds a replica from a full diff of an existing document.
func FromDiff(df *diff.Diff, opts Options) (*Document, error) {
	opts.GUID = df.GUID
	opts.CreatedBy = df.CreatedBy
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := d.Apply(df); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) GUID() string {
	return d.opts.GUID
}

func (d *Document) Client() string {
	return d.store.Client
}

// State snapshots the replica's view of every client.
func (d *Document) State() *state.State {
	return d.store.State.Clone()
}

// Frontier content-addresses the current state.
func (d *Document) Frontier() *state.Frontier {
	return state.FrontierOf(d.store.State)
}

// PendingOps counts operations parked on unmet dependencies.
func (d *Document) PendingOps() int {
	return d.store.Pending.Len()
}

// Diff collects everything this replica has beyond the peer state. Passing a
// fresh state yields the full document.
func (d *Document) Diff(peer *state.State) (*diff.Diff, error) {
	if peer == nil {
		peer = state.New()
	}
	return diff.FromStore(d.store, peer)
}

// Apply integrates a peer's diff. On failure the document is restored to the
// state before the call and the error reported; operations left waiting for
// unmet dependencies are not failures.
func (d *Document) Apply(df *diff.Diff) error {
	snap := d.store.Clone()

	t, err := tx.New(d.store, df, d.log)
	if err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		d.store = snap
		d.metrics.TxRollbacks.Inc()
		d.log.WithDocID(d.opts.GUID).Error("diff apply rolled back", zap.Error(err))
		d.bumpGen()
		return err
	}

	d.committed = d.store.Clone()
	d.bumpGen()
	return nil
}

// Commit pins the current state as the rollback point for local edits.
func (d *Document) Commit() {
	d.committed = d.store.Clone()
}

// Rollback discards every local change since the last Commit (or Apply).
func (d *Document) Rollback() {
	d.store = d.committed.Clone()
	d.bumpGen()
}

// CloneDeep copies the full replica. The clone keeps the same client
// identity until UpdateClient gives it its own.
func (d *Document) CloneDeep() *Document {
	clone := &Document{
		opts:      d.opts,
		store:     d.store.Clone(),
		committed: d.committed.Clone(),
		log:       d.log,
		metrics:   d.metrics,
		indexes:   make(map[id.Id]*colIndex),
	}
	return clone
}

// UpdateClient turns this replica into a distinct client with a fresh
// identity. Typically follows CloneDeep.
func (d *Document) UpdateClient() {
	client := uuid.NewString()
	d.opts.Client = client
	d.store.UpdateClient(client)
	d.committed.UpdateClient(client)
}

func (d *Document) Root() *Map {
	return &Map{Node{doc: d, data: d.store.Root().Data, attached: true}}
}

// Get returns the value of a root field, nil when unset.
func (d *Document) Get(field string) *Node {
	return d.Root().Get(field)
}

// Set assigns a root field, tombstoning any previous value.
func (d *Document) Set(field string, n *Node) error {
	return d.Root().Set(field, n)
}

// Remove tombstones a root field.
func (d *Document) Remove(field string) {
	d.Root().Remove(field)
}

// Factories. Nodes are created detached and join the tree when placed into
// a collection; ids are allocated at that point.

func (d *Document) List() *List {
	return &List{Node{doc: d, data: &item.Data{Kind: item.KindList, Content: item.NullContent()}}}
}

func (d *Document) Map() *Map {
	return &Map{Node{doc: d, data: &item.Data{Kind: item.KindMap, Content: item.NullContent()}}}
}

func (d *Document) Text() *Text {
	return &Text{Node{doc: d, data: &item.Data{Kind: item.KindText, Content: item.NullContent()}}}
}

func (d *Document) Atom(value any) *Atom {
	return &Atom{Node{doc: d, data: &item.Data{Kind: item.KindAtom, Content: item.ValueContent(value)}}}
}

func (d *Document) String(s string) *Str {
	return &Str{Node{doc: d, data: &item.Data{Kind: item.KindString, Content: item.StringContent(s)}}}
}

func (d *Document) bumpGen() {
	d.gen++
}

// indexFor returns the positional index of a collection, rebuilding it from
// the chain when the collection changed since the index was built.
func (d *Document) indexFor(col *item.Item) *posindex.Index {
	key := col.ID()
	ci := d.indexes[key]
	if ci != nil && ci.gen == d.gen {
		return ci.ix
	}
	ix := posindex.New()
	pos := 0
	for _, c := range visibleChildren(col) {
		w := childWeight(col, c)
		ix.Insert(pos, c, w)
		pos += w
	}
	d.indexes[key] = &colIndex{ix: ix, gen: d.gen}
	return ix
}

// dropIndex invalidates one collection's index after an edit the index
// cannot track incrementally.
func (d *Document) dropIndex(col *item.Item) {
	delete(d.indexes, col.ID())
}

// childWeight is the positional span of a child: characters for text
// content, one slot otherwise.
func childWeight(col *item.Item, c *item.Item) int {
	if col.Kind() == item.KindText && c.Kind() == item.KindString {
		return int(c.Size())
	}
	return 1
}

// attach places a detached node into the chain after left (nil for the
// head) under parent, allocating its clocks and fixing origins.
func (d *Document) attach(n *Node, parent, left *item.Item) error {
	if n.attached {
		return fmt.Errorf("doc: node already attached at %s", n.data.ID)
	}
	if n.doc != d {
		return fmt.Errorf("doc: node belongs to another document")
	}

	size := id.Clock(1)
	if n.data.Kind == item.KindString {
		size = id.Clock(len(n.data.Content.Str))
		if size == 0 {
			return fmt.Errorf("doc: cannot attach empty string")
		}
	}

	n.data.ID = d.store.Take(size)
	pid := parent.ID()
	n.data.ParentID = &pid

	var right *item.Item
	if left != nil {
		right = left.Right
		leftEnd := left.EndId()
		n.data.LeftID = &leftEnd
	} else {
		right = parent.Start
	}
	if right != nil {
		rid := right.ID()
		n.data.RightID = &rid
	}

	it := item.New(n.data)
	it.Parent = parent
	it.Left = left
	it.Right = right
	if left != nil {
		left.Right = it
	} else {
		parent.Start = it
	}
	if right != nil {
		right.Left = it
	} else {
		parent.End = it
	}

	if err := d.store.Insert(it); err != nil {
		return err
	}
	n.attached = true
	return nil
}

// deleteRange tombstones a contiguous id range as one delete operation.
func (d *Document) deleteRange(r id.Range) error {
	del := store.Delete{ID: d.store.Take(1), Range: r}
	return d.store.ApplyDelete(del)
}
