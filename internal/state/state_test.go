package state

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMax(t *testing.T) {
	s := New()
	cid, clock := s.GetOrInsert("c1")
	assert.Equal(t, uint32(0), clock)

	s.UpdateMax(cid, 1)
	assert.Equal(t, uint32(1), s.Get(cid))
	s.UpdateMax(cid, 5)
	assert.Equal(t, uint32(5), s.Get(cid))
	s.UpdateMax(cid, 3)
	assert.Equal(t, uint32(5), s.Get(cid))
}

func TestClockOf(t *testing.T) {
	s := New()
	cid, _ := s.GetOrInsert("c1")
	s.Update(cid, 7)

	assert.Equal(t, uint32(7), s.ClockOf("c1"))
	assert.Equal(t, uint32(0), s.ClockOf("unknown"))
}

func TestAsPer(t *testing.T) {
	s1 := New()
	c1 := uuid.NewString()
	c2 := uuid.NewString()
	id1, _ := s1.GetOrInsert(c1)
	id2, _ := s1.GetOrInsert(c2)
	s1.Update(id1, 5)
	s1.Update(id2, 5)

	s2 := New()
	id3, _ := s2.GetOrInsert(uuid.NewString())
	id4, _ := s2.GetOrInsert(uuid.NewString())
	s2.Update(id3, 10)
	s2.Update(id4, 10)

	s3 := s1.AsPer(s2)

	// s1's clients extend s2's numbering and carry s1's clocks; ids 0 and
	// 1 belong to s2's clients, which s1 never saw.
	assert.Equal(t, uint32(0), s3.Get(0))
	assert.Equal(t, uint32(0), s3.Get(1))
	assert.Equal(t, uint32(5), s3.Get(2))
	assert.Equal(t, uint32(5), s3.Get(3))

	got, ok := s3.Clients.Get(c1)
	require.True(t, ok)
	assert.Equal(t, uint32(2), got)
}

func TestMerge(t *testing.T) {
	s1 := New()
	a, _ := s1.GetOrInsert("a")
	s1.Update(a, 4)

	s2 := New()
	b, _ := s2.GetOrInsert("a")
	s2.Update(b, 9)
	c, _ := s2.GetOrInsert("b")
	s2.Update(c, 2)

	adjusted := s2.AsPer(s1)
	merged := s1.Merge(adjusted)

	assert.Equal(t, uint32(9), merged.ClockOf("a"))
	assert.Equal(t, uint32(2), merged.ClockOf("b"))
}

func TestFrontierHashStable(t *testing.T) {
	f1 := NewFrontier()
	f1.Add("client-a", 1)
	f1.Add("client-b", 2)

	f2 := NewFrontier()
	f2.Add("client-b", 2)
	f2.Add("client-a", 1)

	require.Equal(t, f1.Hash(), f2.Hash())
	assert.Len(t, f1.Hash(), 40)
	assert.Equal(t, f1.Hash()[:8], f1.ShortHash())
}

func TestFrontierHashChanges(t *testing.T) {
	f1 := NewFrontier()
	f1.Add("client-a", 1)

	f2 := NewFrontier()
	f2.Add("client-a", 2)

	assert.NotEqual(t, f1.Hash(), f2.Hash())
}
