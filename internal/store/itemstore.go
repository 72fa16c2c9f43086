package store

import (
	"fmt"
	"sort"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// ItemStore holds live items grouped by client, ordered by clock. A client's
// items occupy disjoint ranges, so any clock inside an item's range finds the
// enclosing item by binary search.
type ItemStore struct {
	clients map[id.ClientId][]*item.Item
}

func NewItemStore() *ItemStore {
	return &ItemStore{clients: make(map[id.ClientId][]*item.Item)}
}

func (s *ItemStore) Insert(it *item.Item) error {
	r := it.Range()
	items := s.clients[r.Client]
	at := sort.Search(len(items), func(i int) bool {
		return items[i].Range().End >= r.Start
	})
	if at < len(items) && items[at].Range().Overlaps(r) {
		return fmt.Errorf("store: item %s overlaps %s", r, items[at].Range())
	}
	items = append(items, nil)
	copy(items[at+1:], items[at:])
	items[at] = it
	s.clients[r.Client] = items
	return nil
}

// Find returns the item whose range contains the id, or nil.
func (s *ItemStore) Find(i id.Id) *item.Item {
	items := s.clients[i.Client]
	at := sort.Search(len(items), func(j int) bool {
		return items[j].Range().End >= i.Clock
	})
	if at < len(items) && items[at].Range().Contains(i) {
		return items[at]
	}
	return nil
}

func (s *ItemStore) Contains(i id.Id) bool {
	return s.Find(i) != nil
}

// Replace swaps one stored item for its two split halves. The halves must
// cover exactly the old item's range.
func (s *ItemStore) Replace(old, left, right *item.Item) error {
	r := old.Range()
	items := s.clients[r.Client]
	at := sort.Search(len(items), func(i int) bool {
		return items[i].Range().End >= r.Start
	})
	if at >= len(items) || items[at] != old {
		return fmt.Errorf("store: replace: item %s not found", r)
	}
	items = append(items, nil)
	copy(items[at+2:], items[at+1:])
	items[at] = left
	items[at+1] = right
	s.clients[r.Client] = items
	return nil
}

// Clients returns the client ids with at least one item, ascending.
func (s *ItemStore) Clients() []id.ClientId {
	out := make([]id.ClientId, 0, len(s.clients))
	for cid := range s.clients {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Items returns a client's items in clock order. The slice is shared; callers
// must not mutate it.
func (s *ItemStore) Items(client id.ClientId) []*item.Item {
	return s.clients[client]
}

func (s *ItemStore) Len() int {
	n := 0
	for _, items := range s.clients {
		n += len(items)
	}
	return n
}
