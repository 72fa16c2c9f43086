package id

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/emrgen/nitro-sub000/internal/bimap"
)

// Clock is a per-client monotonic counter. The first operation of a client
// takes clock 1.
type Clock = uint32

// ClientId is a replica-local alias for a Client string. Two replicas may
// number the same Client differently, so a ClientId never crosses the wire
// without its translation table.
type ClientId = uint32

// FieldId is a replica-local alias for a map field name.
type FieldId = uint32

// Id addresses a single item, or the first clock of a multi-clock item.
type Id struct {
	Client ClientId
	Clock  Clock
}

func New(client ClientId, clock Clock) Id {
	return Id{Client: client, Clock: clock}
}

func (i Id) Next() Id {
	return Id{Client: i.Client, Clock: i.Clock + 1}
}

func (i Id) Add(n Clock) Id {
	return Id{Client: i.Client, Clock: i.Clock + n}
}

// Range expands the id to the range it occupies for an item of the given
// size.
func (i Id) Range(size Clock) Range {
	return Range{Client: i.Client, Start: i.Clock, End: i.Clock + size - 1}
}

func (i Id) String() string {
	return fmt.Sprintf("(%d, %d)", i.Client, i.Clock)
}

// Compare orders two ids. Same-client ids order by clock. Different-client
// ids order by the hash of their Client strings, never by ClientId, because
// ClientIds are not portable across replicas. Comparing ids of unknown
// clients is an invariant violation.
func Compare(a, b Id, clients *bimap.Table) int {
	if a.Client == b.Client {
		return compareClocks(a.Clock, b.Clock)
	}

	ca, ok := clients.Key(a.Client)
	if !ok {
		panic(fmt.Sprintf("id: compare: unknown client id %d", a.Client))
	}
	cb, ok := clients.Key(b.Client)
	if !ok {
		panic(fmt.Sprintf("id: compare: unknown client id %d", b.Client))
	}

	ha := ClientHash(ca)
	hb := ClientHash(cb)
	return bytes.Compare(ha[:], hb[:])
}

// ClientHash is the global, replica-independent ordering key for a Client
// string.
func ClientHash(client string) [32]byte {
	return blake2b.Sum256([]byte(client))
}

func compareClocks(a, b Clock) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// EqOpt compares two optional ids.
func EqOpt(a, b *Id) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Range is a contiguous run of clocks belonging to one client, used to
// compress insertions of consecutive characters or elements.
type Range struct {
	Client ClientId
	Start  Clock
	End    Clock
}

func NewRange(client ClientId, start, end Clock) Range {
	return Range{Client: client, Start: start, End: end}
}

func (r Range) Size() Clock {
	return r.End - r.Start + 1
}

func (r Range) StartId() Id {
	return Id{Client: r.Client, Clock: r.Start}
}

func (r Range) EndId() Id {
	return Id{Client: r.Client, Clock: r.End}
}

func (r Range) Contains(i Id) bool {
	return r.Client == i.Client && r.Start <= i.Clock && i.Clock <= r.End
}

func (r Range) Overlaps(other Range) bool {
	return r.Client == other.Client && r.Start <= other.End && other.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("(%d, %d, %d)", r.Client, r.Start, r.End)
}

// Split cuts the range after offset clocks. The offset must fall strictly
// inside the range.
func (r Range) Split(offset Clock) (Range, Range, error) {
	if offset == 0 || offset >= r.Size() {
		return Range{}, Range{}, fmt.Errorf("id: cannot split range %s at %d", r, offset)
	}
	left := Range{Client: r.Client, Start: r.Start, End: r.Start + offset - 1}
	right := Range{Client: r.Client, Start: r.Start + offset, End: r.End}
	return left, right, nil
}
