package item

import (
	"testing"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
)

func TestDataSize(t *testing.T) {
	str := &Data{ID: id.New(1, 1), Kind: KindString, Content: StringContent("hello")}
	if str.Size() != 5 {
		t.Errorf("expected size 5, got %d", str.Size())
	}
	atom := &Data{ID: id.New(1, 6), Kind: KindAtom, Content: ValueContent(42)}
	if atom.Size() != 1 {
		t.Errorf("expected size 1, got %d", atom.Size())
	}
	if str.Range().End != 5 {
		t.Errorf("expected range end 5, got %d", str.Range().End)
	}
}

func TestSplit(t *testing.T) {
	rightOrigin := id.New(2, 9)
	d := &Data{
		ID:      id.New(1, 10),
		Kind:    KindString,
		Content: StringContent("hello"),
		RightID: &rightOrigin,
	}

	left, right, err := d.Split(2)
	if err != nil {
		t.Fatal(err)
	}
	if left.Content.Str != "he" || right.Content.Str != "llo" {
		t.Errorf("split content %q | %q", left.Content.Str, right.Content.Str)
	}
	if left.ID != id.New(1, 10) || right.ID != id.New(1, 12) {
		t.Errorf("split ids %s | %s", left.ID, right.ID)
	}
	// The right half's left origin is the last clock of the left half;
	// both keep the original right origin.
	if right.LeftID == nil || *right.LeftID != id.New(1, 11) {
		t.Errorf("right.LeftID = %v", right.LeftID)
	}
	if left.RightID == nil || *left.RightID != rightOrigin {
		t.Errorf("left.RightID = %v", left.RightID)
	}
	if right.RightID == nil || *right.RightID != rightOrigin {
		t.Errorf("right.RightID = %v", right.RightID)
	}
}

func TestSplitRejectsNonString(t *testing.T) {
	d := &Data{ID: id.New(1, 1), Kind: KindAtom, Content: ValueContent(1)}
	if _, _, err := d.Split(1); err == nil {
		t.Error("expected error splitting an atom")
	}
}

func TestAdjust(t *testing.T) {
	before := bimap.New()
	before.GetOrInsert("remote-client")

	after := bimap.New()
	after.GetOrInsert("local-client")
	after.GetOrInsert("remote-client")

	beforeFields := bimap.New()
	beforeFields.GetOrInsert("title")

	afterFields := bimap.New()
	afterFields.GetOrInsert("body")
	afterFields.GetOrInsert("title")

	parent := id.New(0, 1)
	d := &Data{
		ID:       id.New(0, 2),
		Kind:     KindAtom,
		Content:  ValueContent("x"),
		ParentID: &parent,
		Field:    0,
		HasField: true,
	}

	adj, err := d.Adjust(before, after, beforeFields, afterFields)
	if err != nil {
		t.Fatal(err)
	}
	if adj.ID != id.New(1, 2) {
		t.Errorf("adjusted id %s", adj.ID)
	}
	if adj.ParentID == nil || *adj.ParentID != id.New(1, 1) {
		t.Errorf("adjusted parent %v", adj.ParentID)
	}
	if adj.Field != 1 {
		t.Errorf("adjusted field %d", adj.Field)
	}
	// Source untouched.
	if d.ID.Client != 0 || d.Field != 0 {
		t.Error("adjust mutated the source")
	}
}

func TestMoved(t *testing.T) {
	target := New(&Data{ID: id.New(1, 1), Kind: KindAtom, Content: ValueContent(1)})
	mover := New(&Data{ID: id.New(1, 2), Kind: KindMove, Content: NullContent()})

	if target.Moved() {
		t.Error("fresh item must not be moved")
	}
	target.Mover = mover
	if !target.Moved() {
		t.Error("expected moved with live mover")
	}
	mover.Deleted = true
	if target.Moved() {
		t.Error("deleted mover must revert the move")
	}
	mover.Deleted = false
	mover.Inactive = true
	if target.Moved() {
		t.Error("inactive mover must have no effect")
	}
}
