// Package nitro is the public surface of the collaborative document engine:
// replicas edit structured documents independently and converge by
// exchanging binary diffs.
package nitro

import (
	"fmt"

	"github.com/emrgen/nitro-sub000/internal/codec"
	"github.com/emrgen/nitro-sub000/internal/diff"
	"github.com/emrgen/nitro-sub000/internal/doc"
	"github.com/emrgen/nitro-sub000/internal/monitoring"
	"github.com/emrgen/nitro-sub000/internal/state"
)

// Options configures a document replica.
type Options = doc.Options

// SyncDirection selects which side's operations flow during Sync.
type SyncDirection = doc.SyncDirection

const (
	SyncBoth        = doc.SyncBoth
	SyncLeftToRight = doc.SyncLeftToRight
	SyncRightToLeft = doc.SyncRightToLeft
)

// Doc wraps a document replica.
type Doc struct {
	d *doc.Document
}

func New(opts Options) (*Doc, error) {
	inner, err := doc.New(opts)
	if err != nil {
		return nil, fmt.Errorf("nitro: failed to create document: %w", err)
	}
	return &Doc{d: inner}, nil
}

// FromDiff builds a replica from an encoded full diff of an existing
// document.
func FromDiff(buf []byte, opts Options) (*Doc, error) {
	df, err := codec.DecodeDiff(buf)
	if err != nil {
		return nil, err
	}
	inner, err := doc.FromDiff(df, opts)
	if err != nil {
		return nil, err
	}
	return &Doc{d: inner}, nil
}

func (x *Doc) GUID() string   { return x.d.GUID() }
func (x *Doc) Client() string { return x.d.Client() }

// State snapshots the replica's per-client clocks for diff requests.
func (x *Doc) State() *state.State { return x.d.State() }

// Frontier returns the content-address of the current state.
func (x *Doc) Frontier() string { return x.d.Frontier().Hash() }

// Diff collects everything this replica has beyond the peer state, encoded
// for the wire. A nil peer state yields the full document.
func (x *Doc) Diff(peer *state.State) ([]byte, error) {
	df, err := x.d.Diff(peer)
	if err != nil {
		return nil, err
	}
	buf, err := codec.EncodeDiff(df)
	if err != nil {
		return nil, err
	}
	monitoring.Default().DiffEncodedBytes.Observe(float64(len(buf)))
	return buf, nil
}

// Apply integrates an encoded diff from a peer.
func (x *Doc) Apply(buf []byte) error {
	df, err := codec.DecodeDiff(buf)
	if err != nil {
		return err
	}
	return x.d.Apply(df)
}

func (x *Doc) Get(field string) *doc.Node          { return x.d.Get(field) }
func (x *Doc) Set(field string, n *doc.Node) error { return x.d.Set(field, n) }
func (x *Doc) Remove(field string)                 { x.d.Remove(field) }

func (x *Doc) List() *doc.List        { return x.d.List() }
func (x *Doc) Map() *doc.Map          { return x.d.Map() }
func (x *Doc) Text() *doc.Text        { return x.d.Text() }
func (x *Doc) Atom(value any) *doc.Atom { return x.d.Atom(value) }
func (x *Doc) String(s string) *doc.Str { return x.d.String(s) }

func (x *Doc) ToJSON() any        { return x.d.ToJSON() }
func (x *Doc) JSONString() string { return x.d.JSONString() }

// Commit pins the rollback point; Rollback discards local edits since then.
func (x *Doc) Commit()   { x.d.Commit() }
func (x *Doc) Rollback() { x.d.Rollback() }

// CloneDeep copies the replica; UpdateClient gives a copy its own identity.
func (x *Doc) CloneDeep() *Doc {
	return &Doc{d: x.d.CloneDeep()}
}

func (x *Doc) UpdateClient() { x.d.UpdateClient() }

// Raw exposes the underlying document for advanced usage.
func (x *Doc) Raw() *doc.Document { return x.d }

// Sync exchanges diffs between two replicas over the wire codec.
func Sync(a, b *Doc, direction SyncDirection) error {
	diffAB, err := a.Diff(b.State())
	if err != nil {
		return err
	}
	diffBA, err := b.Diff(a.State())
	if err != nil {
		return err
	}

	switch direction {
	case SyncLeftToRight:
		return b.Apply(diffAB)
	case SyncRightToLeft:
		return a.Apply(diffBA)
	default:
		if err := a.Apply(diffBA); err != nil {
			return err
		}
		return b.Apply(diffAB)
	}
}

// EqualDocs compares the visible trees of two replicas.
func EqualDocs(a, b *Doc) bool {
	return doc.EqualDocs(a.d, b.d)
}

// DecodeDiff parses an encoded diff without applying it.
func DecodeDiff(buf []byte) (*diff.Diff, error) {
	return codec.DecodeDiff(buf)
}
