package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/nitro-sub000/internal/diff"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
	"github.com/emrgen/nitro-sub000/internal/store"
)

// newReceiver builds a store with its root in place, the way a document
// would hand it to a transaction.
func newReceiver(t *testing.T) *store.DocStore {
	t.Helper()
	ds := store.NewDocStore("doc-1", "local", "local")
	root := item.New(&item.Data{ID: ds.RootId(), Kind: item.KindRoot, Content: item.NullContent()})
	require.NoError(t, ds.Insert(root))
	return ds
}

// remoteDiff wraps remote items into a diff carrying the sender's tables:
// the sender numbers "local" 0 and "remote" 1.
func remoteDiff(clock id.Clock, datas ...*item.Data) *diff.Diff {
	d := diff.New("doc-1", "local")
	localId := d.State.Clients.GetOrInsert("local")
	remoteId := d.State.Clients.GetOrInsert("remote")
	d.State.Update(localId, 1)
	d.State.Update(remoteId, clock)
	for _, data := range datas {
		d.Items[data.ID.Client] = append(d.Items[data.ID.Client], data)
	}
	return d
}

func TestOrphanStaysPending(t *testing.T) {
	ds := newReceiver(t)
	rootId := ds.RootId()

	// The second of two remote items, shipped alone: its left origin has
	// not arrived yet.
	leftDep := id.New(1, 1)
	second := &item.Data{
		ID: id.New(1, 2), Kind: item.KindAtom, Content: item.ValueContent(float64(2)),
		ParentID: &rootId, LeftID: &leftDep,
	}

	tx1, err := New(ds, remoteDiff(2, second), nil)
	require.NoError(t, err)
	require.NoError(t, tx1.Commit(), "an unmet dependency is not an error")

	assert.Equal(t, 1, ds.Pending.Len())
	assert.False(t, ds.Contains(id.New(1, 2)))

	// The missing item arrives; both integrate.
	first := &item.Data{
		ID: id.New(1, 1), Kind: item.KindAtom, Content: item.ValueContent(float64(1)),
		ParentID: &rootId,
	}
	tx2, err := New(ds, remoteDiff(2, first), nil)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())

	assert.Equal(t, 0, ds.Pending.Len())
	assert.True(t, ds.Contains(id.New(1, 1)))
	assert.True(t, ds.Contains(id.New(1, 2)))

	root := ds.Root()
	require.NotNil(t, root.Start)
	assert.Equal(t, id.New(1, 1), root.Start.ID())
	assert.Equal(t, id.New(1, 2), root.Start.Right.ID())
}

func TestDeleteWaitsForTarget(t *testing.T) {
	ds := newReceiver(t)
	rootId := ds.RootId()

	// A delete for an item this replica has never seen stays queued.
	d := remoteDiff(3)
	d.Deletes[1] = []store.Delete{{
		ID:    id.New(1, 3),
		Range: id.NewRange(1, 1, 1),
	}}

	tx1, err := New(ds, d, nil)
	require.NoError(t, err)
	require.NoError(t, tx1.Commit())
	assert.Equal(t, 1, ds.Pending.Len())

	// Once the item arrives the delete lands with it.
	target := &item.Data{
		ID: id.New(1, 1), Kind: item.KindAtom, Content: item.ValueContent(float64(1)),
		ParentID: &rootId,
	}
	d2 := remoteDiff(3, target)
	d2.Deletes[1] = []store.Delete{{
		ID:    id.New(1, 3),
		Range: id.NewRange(1, 1, 1),
	}}

	tx2, err := New(ds, d2, nil)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())

	assert.Equal(t, 0, ds.Pending.Len())
	it := ds.Find(id.New(1, 1))
	require.NotNil(t, it)
	assert.True(t, it.Deleted)
}

func TestIdempotentCommit(t *testing.T) {
	ds := newReceiver(t)
	rootId := ds.RootId()

	data := &item.Data{
		ID: id.New(1, 1), Kind: item.KindAtom, Content: item.ValueContent(float64(1)),
		ParentID: &rootId,
	}

	for i := 0; i < 2; i++ {
		txn, err := New(ds, remoteDiff(1, data), nil)
		require.NoError(t, err)
		require.NoError(t, txn.Commit())
	}

	root := ds.Root()
	require.NotNil(t, root.Start)
	assert.Same(t, root.Start, root.End)
	assert.Equal(t, 1, store.VisibleSize(root))
}
