package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextInsert(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))

	require.NoError(t, txt.Insert(0, "hello"))
	require.NoError(t, txt.Insert(5, " world"))
	require.NoError(t, txt.Insert(5, ","))

	assert.Equal(t, "hello, world", txt.String())
	assert.Equal(t, 12, txt.Size())
	assert.Equal(t, `{"t":"hello, world"}`, d.JSONString())
}

func TestTextInsertMidRun(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))

	require.NoError(t, txt.Insert(0, "held"))
	require.NoError(t, txt.Insert(2, "llo wor"))

	assert.Equal(t, "hello world", txt.String())
}

func TestTextDelete(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))
	require.NoError(t, txt.Insert(0, "hello world"))

	// Cut out the middle of a single run.
	require.NoError(t, txt.Delete(4, 4))
	assert.Equal(t, "hellrld", txt.String())
	assert.Equal(t, 7, txt.Size())

	require.NoError(t, txt.Delete(0, 2))
	assert.Equal(t, "llrld", txt.String())
}

func TestTextDeleteAcrossItems(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))
	require.NoError(t, txt.Insert(0, "abc"))
	require.NoError(t, txt.Insert(3, "def"))
	require.NoError(t, txt.Insert(6, "ghi"))

	require.NoError(t, txt.Delete(2, 5))
	assert.Equal(t, "abhi", txt.String())
}

func TestTextConcurrentInsertSameRun(t *testing.T) {
	d1 := newDoc(t)
	txt1 := d1.Text()
	require.NoError(t, d1.Set("t", &txt1.Node))
	require.NoError(t, txt1.Insert(0, "hello"))

	d2 := fork(d1)
	txt2 := d2.Get("t").AsText()
	require.NotNil(t, txt2)

	// Both split the same run concurrently.
	require.NoError(t, txt1.Insert(2, "X"))
	require.NoError(t, txt2.Insert(3, "Y"))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	assert.True(t, EqualDocs(d1, d2))
	assert.Equal(t, 7, txt1.Size())
	assert.Equal(t, "heXlYlo", txt1.String())
}

func TestStrValueAfterPartialDelete(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))

	s := d.String("hello")
	require.NoError(t, txt.InsertNode(0, &s.Node))
	require.NoError(t, txt.Delete(1, 2))

	assert.Equal(t, "hlo", s.Value())
	assert.Equal(t, 5, s.Len())
}

func TestMarks(t *testing.T) {
	d := newDoc(t)
	txt := d.Text()
	require.NoError(t, d.Set("t", &txt.Node))
	require.NoError(t, txt.Insert(0, "hello"))

	require.NoError(t, txt.ApplyMark(1, 3, "bold", nil))

	marks := txt.Marks()
	require.Len(t, marks, 1)
	assert.Equal(t, "bold", marks[0].Name)
	assert.Equal(t, 1, marks[0].From)
	assert.Equal(t, 3, marks[0].To)

	// The text itself is unchanged by the annotation.
	assert.Equal(t, "hello", txt.String())
	assert.Equal(t, 5, txt.Size())
}

func TestMarksSync(t *testing.T) {
	d1 := newDoc(t)
	txt1 := d1.Text()
	require.NoError(t, d1.Set("t", &txt1.Node))
	require.NoError(t, txt1.Insert(0, "hello"))

	d2 := fork(d1)
	require.NoError(t, txt1.ApplyMark(0, 2, "em", map[string]any{"style": "italic"}))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	txt2 := d2.Get("t").AsText()
	marks := txt2.Marks()
	require.Len(t, marks, 1)
	assert.Equal(t, "em", marks[0].Name)
	assert.Equal(t, 0, marks[0].From)
	assert.Equal(t, 2, marks[0].To)
	assert.Equal(t, "italic", marks[0].Attrs["style"])
	assert.True(t, EqualDocs(d1, d2))
}

func TestMarkFollowsConcurrentInsert(t *testing.T) {
	d1 := newDoc(t)
	txt1 := d1.Text()
	require.NoError(t, d1.Set("t", &txt1.Node))
	require.NoError(t, txt1.Insert(0, "hello"))

	d2 := fork(d1)
	txt2 := d2.Get("t").AsText()

	require.NoError(t, txt1.ApplyMark(2, 5, "bold", nil))
	require.NoError(t, txt2.Insert(0, "XY"))

	require.NoError(t, Sync(d1, d2, SyncBoth))

	assert.Equal(t, "XYhello", txt1.String())
	for _, txt := range []*Text{txt1, d2.Get("t").AsText()} {
		marks := txt.Marks()
		require.Len(t, marks, 1)
		assert.Equal(t, 4, marks[0].From)
		assert.Equal(t, 7, marks[0].To)
	}
}
