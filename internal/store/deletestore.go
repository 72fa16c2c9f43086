package store

import (
	"sort"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// Delete records one delete operation: the operation's own id, which takes a
// clock from the deleting client so peers can causally filter it, and the id
// range it tombstones.
type Delete struct {
	ID    id.Id
	Range id.Range
}

// Adjust rewrites both ids through the client translation tables.
func (d Delete) Adjust(before, after *bimap.Table) (Delete, error) {
	opId, err := item.AdjustId(d.ID, before, after)
	if err != nil {
		return Delete{}, err
	}
	start, err := item.AdjustId(d.Range.StartId(), before, after)
	if err != nil {
		return Delete{}, err
	}
	return Delete{
		ID:    opId,
		Range: start.Range(d.Range.Size()),
	}, nil
}

// DeleteStore holds delete operations grouped by the deleting client,
// ordered by operation clock.
type DeleteStore struct {
	clients map[id.ClientId][]Delete
}

func NewDeleteStore() *DeleteStore {
	return &DeleteStore{clients: make(map[id.ClientId][]Delete)}
}

func (s *DeleteStore) Insert(d Delete) {
	deletes := s.clients[d.ID.Client]
	at := sort.Search(len(deletes), func(i int) bool {
		return deletes[i].ID.Clock >= d.ID.Clock
	})
	if at < len(deletes) && deletes[at].ID == d.ID {
		return
	}
	deletes = append(deletes, Delete{})
	copy(deletes[at+1:], deletes[at:])
	deletes[at] = d
	s.clients[d.ID.Client] = deletes
}

// ContainsOp reports whether the delete operation itself is already recorded.
func (s *DeleteStore) ContainsOp(opId id.Id) bool {
	deletes := s.clients[opId.Client]
	at := sort.Search(len(deletes), func(i int) bool {
		return deletes[i].ID.Clock >= opId.Clock
	})
	return at < len(deletes) && deletes[at].ID == opId
}

func (s *DeleteStore) Clients() []id.ClientId {
	out := make([]id.ClientId, 0, len(s.clients))
	for cid := range s.clients {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deletes returns a client's delete operations in clock order. The slice is
// shared; callers must not mutate it.
func (s *DeleteStore) Deletes(client id.ClientId) []Delete {
	return s.clients[client]
}

func (s *DeleteStore) Len() int {
	n := 0
	for _, deletes := range s.clients {
		n += len(deletes)
	}
	return n
}
