package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
)

func alwaysHealthy(Descriptor) bool { return true }
func neverHealthy(Descriptor) bool  { return false }

func TestRoutingTable_SelfSeeded(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)

	digits := self.ID.Digits(16, 16)
	for row, dig := range digits {
		entry, ok := rt.Get(row, int(dig))
		require.True(t, ok)
		assert.Equal(t, self.ID, entry.ID)
	}
}

func TestRoutingTable_SetAndGet(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)

	other := Descriptor{ID: id.ID(0x0010), Addr: "other"}
	row, col := rt.cellFor(other)

	changed := rt.Set(other, alwaysHealthy)
	assert.True(t, changed)

	got, ok := rt.Get(row, col)
	require.True(t, ok)
	assert.Equal(t, other.ID, got.ID)
}

func TestRoutingTable_SetKeepsHealthyOccupant(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)

	first := Descriptor{ID: id.ID(0x0010), Addr: "first"}
	second := Descriptor{ID: id.ID(0x0011), Addr: "second"}

	require.True(t, rt.Set(first, alwaysHealthy))
	// second falls in the same cell as first (same prefix+digit: both
	// share 2 leading digits with self and both have digit 1 at row 2).
	row, col := rt.cellFor(first)
	row2, col2 := rt.cellFor(second)
	require.Equal(t, row, row2)
	require.Equal(t, col, col2)

	changed := rt.Set(second, alwaysHealthy)
	assert.False(t, changed)

	got, _ := rt.Get(row, col)
	assert.Equal(t, first.ID, got.ID)

	// An unhealthy occupant can be replaced.
	changed = rt.Set(second, neverHealthy)
	assert.True(t, changed)
	got, _ = rt.Get(row, col)
	assert.Equal(t, second.ID, got.ID)
}

func TestRoutingTable_ClearRemovesByID(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)
	other := Descriptor{ID: id.ID(0x0010), Addr: "other"}
	rt.Set(other, alwaysHealthy)

	removed, ok := rt.Clear(other.ID)
	require.True(t, ok)
	assert.Equal(t, other.ID, removed.ID)

	_, ok = rt.Clear(other.ID)
	assert.False(t, ok)
}

func TestRoutingTable_BestFor(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)
	other := Descriptor{ID: id.ID(0x0010), Addr: "other"}
	rt.Set(other, alwaysHealthy)

	best, ok := rt.BestFor(id.ID(0x001A))
	require.True(t, ok)
	assert.Equal(t, other.ID, best.ID)
}

func TestRoutingTable_FallbackPicksClosestWithSufficientPrefix(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	rt := NewRoutingTable(self, 16, 16)

	key := id.ID(0x0020)
	candidates := []Descriptor{
		{ID: id.ID(0x0025), Addr: "a"}, // shares prefix len 3 with key ("002")
		{ID: id.ID(0x00A0), Addr: "b"}, // shares prefix len 2 with key ("00") and is farther
	}

	best, ok := rt.Fallback(key, candidates)
	require.True(t, ok)
	assert.Equal(t, id.ID(0x0025), best.ID)
}
