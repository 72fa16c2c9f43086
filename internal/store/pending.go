package store

import (
	"sort"

	"github.com/emrgen/nitro-sub000/internal/id"
	"github.com/emrgen/nitro-sub000/internal/item"
)

// PendingStore queues remote operations whose dependencies have not arrived
// yet. Items are grouped per client and ordered by clock, which preserves
// the causal delivery order within a client. The store is unbounded.
type PendingStore struct {
	items   map[id.ClientId][]*item.Data
	deletes []Delete
}

func NewPendingStore() *PendingStore {
	return &PendingStore{items: make(map[id.ClientId][]*item.Data)}
}

func (s *PendingStore) Insert(data *item.Data) {
	queue := s.items[data.ID.Client]
	at := sort.Search(len(queue), func(i int) bool {
		return queue[i].ID.Clock >= data.ID.Clock
	})
	if at < len(queue) && queue[at].ID == data.ID {
		return
	}
	queue = append(queue, nil)
	copy(queue[at+1:], queue[at:])
	queue[at] = data
	s.items[data.ID.Client] = queue
}

// Head returns the lowest-clock queued item for a client without removing it.
func (s *PendingStore) Head(client id.ClientId) *item.Data {
	queue := s.items[client]
	if len(queue) == 0 {
		return nil
	}
	return queue[0]
}

func (s *PendingStore) Pop(client id.ClientId) *item.Data {
	queue := s.items[client]
	if len(queue) == 0 {
		return nil
	}
	head := queue[0]
	queue = queue[1:]
	if len(queue) == 0 {
		delete(s.items, client)
	} else {
		s.items[client] = queue
	}
	return head
}

func (s *PendingStore) Clients() []id.ClientId {
	out := make([]id.ClientId, 0, len(s.items))
	for cid := range s.items {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *PendingStore) InsertDelete(d Delete) {
	for _, have := range s.deletes {
		if have.ID == d.ID {
			return
		}
	}
	s.deletes = append(s.deletes, d)
}

// TakeDeletes removes and returns all queued deletes.
func (s *PendingStore) TakeDeletes() []Delete {
	out := s.deletes
	s.deletes = nil
	return out
}

func (s *PendingStore) Len() int {
	n := len(s.deletes)
	for _, queue := range s.items {
		n += len(queue)
	}
	return n
}
