package state

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/emrgen/nitro-sub000/internal/id"
)

// Frontier is the most recent clock per Client string. Unlike State it is
// keyed by the portable Client identity, so two replicas holding the same
// set of operations produce byte-identical hashes.
type Frontier struct {
	clients map[string]id.Clock
}

func NewFrontier() *Frontier {
	return &Frontier{clients: make(map[string]id.Clock)}
}

// FrontierOf projects a state onto portable client identities.
func FrontierOf(s *State) *Frontier {
	f := NewFrontier()
	for _, client := range s.Clients.Keys() {
		f.Add(client, s.ClockOf(client))
	}
	return f
}

func (f *Frontier) Add(client string, clock id.Clock) {
	f.clients[client] = clock
}

// Hash is a content-address for the frontier: SHA-1 over the sorted
// (client, clock) pairs, hex encoded.
func (f *Frontier) Hash() string {
	clients := make([]string, 0, len(f.clients))
	for client := range f.clients {
		clients = append(clients, client)
	}
	sort.Strings(clients)

	h := sha1.New()
	var buf [4]byte
	for _, client := range clients {
		h.Write([]byte(client))
		binary.BigEndian.PutUint32(buf[:], f.clients[client])
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (f *Frontier) ShortHash() string {
	return f.Hash()[:8]
}
