package id

import (
	"testing"

	"github.com/emrgen/nitro-sub000/internal/bimap"
)

func TestCompareSameClient(t *testing.T) {
	clients := bimap.New()
	if Compare(New(1, 1), New(1, 2), clients) != -1 {
		t.Error("expected clock order within a client")
	}
	if Compare(New(1, 5), New(1, 5), clients) != 0 {
		t.Error("expected equal ids to compare equal")
	}
}

func TestCompareAcrossClients(t *testing.T) {
	clients := bimap.New()
	clients.GetOrInsert("client-1")
	clients.GetOrInsert("client-2")

	a := New(0, 10)
	b := New(1, 1)

	ab := Compare(a, b, clients)
	ba := Compare(b, a, clients)
	if ab == 0 || ab != -ba {
		t.Errorf("cross-client compare must be a strict order: %d vs %d", ab, ba)
	}

	// The order ignores clocks across clients and is stable.
	if Compare(New(0, 1), New(1, 99), clients) != ab {
		t.Error("cross-client order must not depend on clocks")
	}
}

func TestCompareUnknownClientPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown client id")
		}
	}()
	Compare(New(0, 1), New(1, 1), bimap.New())
}

func TestRange(t *testing.T) {
	r := New(2, 5).Range(3)
	if r.Start != 5 || r.End != 7 || r.Size() != 3 {
		t.Errorf("unexpected range %s", r)
	}
	if !r.Contains(New(2, 6)) {
		t.Error("expected containment of mid clock")
	}
	if r.Contains(New(2, 8)) || r.Contains(New(3, 6)) {
		t.Error("unexpected containment")
	}
}

func TestRangeSplit(t *testing.T) {
	r := NewRange(1, 10, 14)
	left, right, err := r.Split(2)
	if err != nil {
		t.Fatal(err)
	}
	if left.Start != 10 || left.End != 11 {
		t.Errorf("left half %s", left)
	}
	if right.Start != 12 || right.End != 14 {
		t.Errorf("right half %s", right)
	}
	if _, _, err := r.Split(0); err == nil {
		t.Error("expected error splitting at 0")
	}
	if _, _, err := r.Split(5); err == nil {
		t.Error("expected error splitting past the end")
	}
}

func TestSet(t *testing.T) {
	s := NewSet()
	s.Add(NewRange(1, 1, 1))
	s.Add(NewRange(1, 5, 8))
	s.Add(NewRange(2, 3, 3))

	if !s.Contains(New(1, 1)) {
		t.Error("expected (1,1)")
	}
	if !s.Contains(New(1, 6)) {
		t.Error("expected mid-range containment of (1,6)")
	}
	if s.Contains(New(1, 3)) {
		t.Error("unexpected (1,3)")
	}
	if !s.Contains(New(2, 3)) {
		t.Error("expected (2,3)")
	}

	s.Clear()
	if s.Contains(New(1, 1)) {
		t.Error("expected empty set after clear")
	}
}
