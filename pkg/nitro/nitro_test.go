package nitro

import "testing"

func TestNewAndEdit(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if d.GUID() == "" || d.Client() == "" {
		t.Error("expected generated identities")
	}

	s := d.String("hello")
	if err := d.Set("a", &s.Node); err != nil {
		t.Fatal(err)
	}
	if got := d.JSONString(); got != `{"a":"hello"}` {
		t.Errorf("unexpected json %s", got)
	}
}

func TestWireSync(t *testing.T) {
	d1, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d1.Set("a", &d1.String("hello").Node); err != nil {
		t.Fatal(err)
	}

	full, err := d1.Diff(nil)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := FromDiff(full, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !EqualDocs(d1, d2) {
		t.Fatal("replica must equal its source after a full diff")
	}

	list := d2.List()
	if err := d2.Set("l", &list.Node); err != nil {
		t.Fatal(err)
	}
	if err := list.Append(&d2.Atom(float64(1)).Node); err != nil {
		t.Fatal(err)
	}

	if err := Sync(d1, d2, SyncBoth); err != nil {
		t.Fatal(err)
	}
	if !EqualDocs(d1, d2) {
		t.Error("replicas must converge after sync")
	}
	if d1.Frontier() != d2.Frontier() {
		t.Error("frontiers must match after sync")
	}
}

func TestApplyRejectsGarbage(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Apply([]byte{0xff, 0x00}); err == nil {
		t.Error("expected decode error")
	}
}

func TestDecodeDiffRoundtrip(t *testing.T) {
	d, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Set("k", &d.Atom(float64(9)).Node); err != nil {
		t.Fatal(err)
	}

	buf, err := d.Diff(nil)
	if err != nil {
		t.Fatal(err)
	}
	df, err := DecodeDiff(buf)
	if err != nil {
		t.Fatal(err)
	}
	if df.GUID != d.GUID() {
		t.Errorf("guid mismatch: %s vs %s", df.GUID, d.GUID())
	}
	if df.ItemCount() == 0 {
		t.Error("expected items in the full diff")
	}
}
