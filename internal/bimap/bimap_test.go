package bimap

import "testing"

func TestGetOrInsert(t *testing.T) {
	tb := New()
	if got := tb.GetOrInsert("a"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := tb.GetOrInsert("b"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := tb.GetOrInsert("a"); got != 0 {
		t.Errorf("expected stable id 0, got %d", got)
	}
	if tb.Len() != 2 {
		t.Errorf("expected len 2, got %d", tb.Len())
	}
}

func TestReverseLookup(t *testing.T) {
	tb := New()
	tb.GetOrInsert("client-1")
	key, ok := tb.Key(0)
	if !ok || key != "client-1" {
		t.Errorf("expected client-1, got %q", key)
	}
	if _, ok := tb.Key(7); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestAsPer(t *testing.T) {
	t1 := New()
	t1.GetOrInsert("a")
	t1.GetOrInsert("b")
	t1.GetOrInsert("c")

	t2 := New()
	t2.GetOrInsert("b")
	t2.GetOrInsert("d")

	out := t1.AsPer(t2)

	// Shared keys take t2's id, the rest extend t2's numbering in t1's
	// encounter order.
	want := map[string]uint32{"a": 2, "b": 0, "c": 3}
	for key, id := range want {
		if got, ok := out.Get(key); !ok || got != id {
			t.Errorf("AsPer %q: expected %d, got %d (ok=%v)", key, id, got, ok)
		}
	}
	// The inputs stay untouched.
	if got, _ := t1.Get("a"); got != 0 {
		t.Errorf("t1 mutated: a=%d", got)
	}
	if t2.Len() != 2 {
		t.Errorf("t2 mutated: len=%d", t2.Len())
	}
}

func TestAsPerIdentity(t *testing.T) {
	t1 := New()
	t1.GetOrInsert("a")
	t1.GetOrInsert("b")

	out := t1.AsPer(t1)
	for _, key := range t1.Keys() {
		a, _ := t1.Get(key)
		b, _ := out.Get(key)
		if a != b {
			t.Errorf("identity AsPer changed %q: %d != %d", key, a, b)
		}
	}
}

func TestMerge(t *testing.T) {
	t1 := New()
	t1.GetOrInsert("a")
	t1.GetOrInsert("b")

	t2 := t1.AsPer(t1)
	t2 = t2.Merge(t1)

	other := New()
	other.GetOrInsert("b")
	other.GetOrInsert("c")
	adjusted := other.AsPer(t1)

	merged := t1.Merge(adjusted)
	if got, _ := merged.Get("a"); got != 0 {
		t.Errorf("merge: a=%d", got)
	}
	if got, _ := merged.Get("b"); got != 1 {
		t.Errorf("merge: b=%d", got)
	}
	if got, _ := merged.Get("c"); got != 2 {
		t.Errorf("merge: c=%d", got)
	}
}
