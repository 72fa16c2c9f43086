package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoLists builds a document with two sibling lists, p1 holding one atom.
func twoLists(t *testing.T) (*Document, *List, *List, *Node) {
	t.Helper()
	d := newDoc(t)

	p1 := d.List()
	require.NoError(t, d.Set("p1", &p1.Node))
	p2 := d.List()
	require.NoError(t, d.Set("p2", &p2.Node))

	c := d.Atom("c")
	require.NoError(t, p1.Append(&c.Node))
	return d, p1, p2, &c.Node
}

func TestMoveAcrossParents(t *testing.T) {
	d, p1, p2, c := twoLists(t)

	require.NoError(t, p2.Move(c, 0))

	assert.Equal(t, 0, p1.Size())
	assert.Equal(t, 1, p2.Size())
	assert.Equal(t, `{"p1":[],"p2":["c"]}`, d.JSONString())
}

func TestMoveWithinList(t *testing.T) {
	d := newDoc(t)
	l := d.List()
	require.NoError(t, d.Set("l", &l.Node))
	a := d.Atom(float64(1))
	require.NoError(t, l.Append(&a.Node))
	require.NoError(t, l.Append(&d.Atom(float64(2)).Node))
	require.NoError(t, l.Append(&d.Atom(float64(3)).Node))

	require.NoError(t, l.Move(&a.Node, 2))

	assert.Equal(t, `{"l":[2,3,1]}`, d.JSONString())
	assert.Equal(t, 3, l.Size())
}

func TestRevertMove(t *testing.T) {
	d, p1, p2, c := twoLists(t)

	require.NoError(t, p2.Move(c, 0))
	require.NoError(t, p2.RevertMove(c))

	assert.Equal(t, 1, p1.Size())
	assert.Equal(t, 0, p2.Size())
	assert.Equal(t, `{"p1":["c"],"p2":[]}`, d.JSONString())
}

func TestMoveCycleRejected(t *testing.T) {
	d := newDoc(t)
	outer := d.List()
	require.NoError(t, d.Set("outer", &outer.Node))
	inner := d.List()
	require.NoError(t, outer.Append(&inner.Node))

	// Moving the outer list into its own descendant must fail.
	err := inner.Move(&outer.Node, 0)
	assert.ErrorIs(t, err, ErrCycle)

	// Nothing changed.
	assert.Equal(t, 1, outer.Size())
	assert.Equal(t, 0, inner.Size())
}

// A moves C from p1 to p2 while B inserts D after C under p1. After sync C
// lives under p2 and D under p1 at C's old position.
func TestMoveWithConcurrentEdit(t *testing.T) {
	d1, _, p2, c1 := twoLists(t)

	d2 := fork(d1)
	p1b := d2.Get("p1").AsList()
	require.NotNil(t, p1b)

	require.NoError(t, p2.Move(c1, 0))
	require.NoError(t, p1b.Insert(1, &d2.Atom("d").Node))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	require.True(t, EqualDocs(d1, d2))
	assert.Equal(t, `{"p1":["d"],"p2":["c"]}`, d1.JSONString())
}

func TestMoveSyncsToPeer(t *testing.T) {
	d1, _, p2, c := twoLists(t)
	d2 := fork(d1)

	require.NoError(t, p2.Move(c, 0))
	require.NoError(t, Sync(d1, d2, SyncBoth))

	assert.Equal(t, `{"p1":[],"p2":["c"]}`, d2.JSONString())
	assert.True(t, EqualDocs(d1, d2))
}

// Concurrent moves of the same node: one destination wins, the same one on
// every replica.
func TestConcurrentMovesOfSameNode(t *testing.T) {
	d1 := newDoc(t)
	p1 := d1.List()
	require.NoError(t, d1.Set("p1", &p1.Node))
	p2 := d1.List()
	require.NoError(t, d1.Set("p2", &p2.Node))
	p3 := d1.List()
	require.NoError(t, d1.Set("p3", &p3.Node))
	c := d1.Atom("c")
	require.NoError(t, p1.Append(&c.Node))

	d2 := fork(d1)

	require.NoError(t, p2.Move(&c.Node, 0))

	p3b := d2.Get("p3").AsList()
	c2 := d2.Get("p1").AsList().At(0)
	require.NotNil(t, c2)
	require.NoError(t, p3b.Move(c2, 0))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	require.True(t, EqualDocs(d1, d2))
	// Exactly one copy of c is visible somewhere.
	total := d1.Get("p1").AsList().Size() +
		d1.Get("p2").AsList().Size() +
		d1.Get("p3").AsList().Size()
	assert.Equal(t, 1, total)
}

func TestMoveOfDeletedTarget(t *testing.T) {
	d1, p1a, p2a, c := twoLists(t)
	d2 := fork(d1)

	// d1 deletes c while d2 moves it.
	require.NoError(t, c.Delete())

	p2b := d2.Get("p2").AsList()
	c2 := d2.Get("p1").AsList().At(0)
	require.NotNil(t, c2)
	require.NoError(t, p2b.Move(c2, 0))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	require.True(t, EqualDocs(d1, d2))
	assert.Equal(t, 0, p1a.Size())
	assert.Equal(t, 0, p2a.Size())
}
