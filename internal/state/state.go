package state

import (
	"sort"

	"github.com/emrgen/nitro-sub000/internal/bimap"
	"github.com/emrgen/nitro-sub000/internal/id"
)

// State is a replica's view of every client: the interning table assigning
// replica-local ClientIds, paired with the highest clock seen per ClientId.
type State struct {
	Clients *bimap.Table
	clocks  map[id.ClientId]id.Clock
}

func New() *State {
	return &State{
		Clients: bimap.New(),
		clocks:  make(map[id.ClientId]id.Clock),
	}
}

// Get returns the high-water clock for a client id, zero when unseen.
func (s *State) Get(client id.ClientId) id.Clock {
	return s.clocks[client]
}

// ClockOf returns the high-water clock for a Client string, zero when the
// client is unknown to this state.
func (s *State) ClockOf(client string) id.Clock {
	cid, ok := s.Clients.Get(client)
	if !ok {
		return 0
	}
	return s.clocks[cid]
}

func (s *State) Update(client id.ClientId, clock id.Clock) {
	s.clocks[client] = clock
}

func (s *State) UpdateMax(client id.ClientId, clock id.Clock) {
	if cur, ok := s.clocks[client]; !ok || clock > cur {
		s.clocks[client] = clock
	}
}

// GetOrInsert interns the client and returns its id with the current
// high-water clock.
func (s *State) GetOrInsert(client string) (id.ClientId, id.Clock) {
	cid := s.Clients.GetOrInsert(client)
	return cid, s.clocks[cid]
}

// ClientIds returns the known client ids in ascending order.
func (s *State) ClientIds() []id.ClientId {
	out := make([]id.ClientId, 0, len(s.clocks))
	for cid := range s.clocks {
		out = append(out, cid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *State) Clone() *State {
	out := New()
	out.Clients = s.Clients.Clone()
	for cid, clock := range s.clocks {
		out.clocks[cid] = clock
	}
	return out
}

// AsPer reshapes s into other's numbering: the result's client table matches
// other for shared clients and extends other's numbering for the rest, and
// every clock is s's clock for that client (zero when s never saw it).
func (s *State) AsPer(other *State) *State {
	out := New()
	out.Clients = s.Clients.AsPer(other.Clients)
	for _, client := range out.Clients.Keys() {
		cid, _ := out.Clients.Get(client)
		out.clocks[cid] = s.ClockOf(client)
	}
	return out
}

// Merge unions the client tables (s's numbering wins for overlap) and takes
// the per-client max clock.
func (s *State) Merge(other *State) *State {
	out := New()
	out.Clients = s.Clients.Merge(other.Clients)
	for _, client := range out.Clients.Keys() {
		cid, _ := out.Clients.Get(client)
		a := s.ClockOf(client)
		if b := other.ClockOf(client); b > a {
			a = b
		}
		out.clocks[cid] = a
	}
	return out
}

func (s *State) Equal(other *State) bool {
	keys := s.Clients.Keys()
	if len(keys) != len(other.Clients.Keys()) {
		return false
	}
	for _, client := range keys {
		if !other.Clients.Contains(client) {
			return false
		}
		if s.ClockOf(client) != other.ClockOf(client) {
			return false
		}
	}
	return true
}
