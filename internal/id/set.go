package id

import "sort"

// Set holds id ranges grouped by client, answering containment for any clock
// inside a stored range. Ranges are kept sorted per client.
type Set struct {
	clients map[ClientId][]Range
}

func NewSet() *Set {
	return &Set{clients: make(map[ClientId][]Range)}
}

func (s *Set) Add(r Range) {
	ranges := s.clients[r.Client]
	at := sort.Search(len(ranges), func(i int) bool { return ranges[i].Start >= r.Start })
	ranges = append(ranges, Range{})
	copy(ranges[at+1:], ranges[at:])
	ranges[at] = r
	s.clients[r.Client] = ranges
}

func (s *Set) Contains(i Id) bool {
	ranges := s.clients[i.Client]
	at := sort.Search(len(ranges), func(j int) bool { return ranges[j].End >= i.Clock })
	return at < len(ranges) && ranges[at].Contains(i)
}

func (s *Set) Clear() {
	s.clients = make(map[ClientId][]Range)
}

func (s *Set) Len() int {
	n := 0
	for _, ranges := range s.clients {
		n += len(ranges)
	}
	return n
}
