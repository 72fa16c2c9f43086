package doc

import (
	"strings"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// Str is a run of characters sharing one clock range. After concurrent edits
// the run may be split across several store items; the handle reads the
// surviving visible pieces.
type Str struct {
	Node
}

// Value returns the visible characters of the run, skipping tombstoned
// pieces.
func (s *Str) Value() string {
	if !s.attached {
		return s.data.Content.Str
	}
	r := s.data.Range()
	var sb strings.Builder
	clock := r.Start
	for clock <= r.End {
		it := s.doc.store.Find(id.New(r.Client, clock))
		if it == nil {
			break
		}
		if !it.Deleted && it.Kind() == item.KindString {
			sb.WriteString(it.Data.Content.Str)
		}
		clock = it.Range().End + 1
	}
	return sb.String()
}

// Len is the original character count of the run.
func (s *Str) Len() int {
	return len(s.data.Content.Str)
}

// Atom is an immutable opaque value.
type Atom struct {
	Node
}

func (a *Atom) Value() any {
	return a.data.Content.Value
}
