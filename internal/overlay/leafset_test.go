package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
)

func desc(i uint64) Descriptor {
	return Descriptor{ID: id.ID(i), Addr: id.ID(i).String() + ":0"}
}

func TestLeafSet_InsertSidesAndEviction(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 2)

	// Predecessors.
	_, hadEv, ok := l.Insert(desc(90))
	require.True(t, ok)
	require.False(t, hadEv)
	_, hadEv, ok = l.Insert(desc(95))
	require.True(t, ok)
	require.False(t, hadEv)

	// Side full; a closer predecessor should evict the farthest (90).
	ev, hadEv, ok := l.Insert(desc(99))
	require.True(t, ok)
	require.True(t, hadEv)
	assert.Equal(t, id.ID(90), ev.ID)

	preds := l.Predecessors()
	require.Len(t, preds, 2)
	assert.Equal(t, id.ID(99), preds[0].ID)
	assert.Equal(t, id.ID(95), preds[1].ID)

	// A farther predecessor than the current farthest is dropped.
	_, hadEv, ok = l.Insert(desc(80))
	assert.False(t, ok)
	assert.False(t, hadEv)
}

func TestLeafSet_InsertRejectsSelf(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 4)
	_, _, ok := l.Insert(self)
	assert.False(t, ok)
}

func TestLeafSet_RemoveAndContains(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 4)
	l.Insert(desc(90))
	l.Insert(desc(110))

	assert.True(t, l.Contains(id.ID(90)))
	side, ok := l.SideOf(id.ID(90))
	require.True(t, ok)
	assert.Equal(t, SidePredecessor, side)

	removed, ok := l.Remove(id.ID(90))
	require.True(t, ok)
	assert.Equal(t, id.ID(90), removed.ID)
	assert.False(t, l.Contains(id.ID(90)))

	_, ok = l.Remove(id.ID(90))
	assert.False(t, ok)
}

func TestLeafSet_CoversUnfilledMeansEverything(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 4)
	assert.True(t, l.Covers(id.ID(1)))
	assert.True(t, l.Covers(id.Max))
}

func TestLeafSet_CoversFilled(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 1)
	l.Insert(desc(90))
	l.Insert(desc(110))

	assert.True(t, l.Covers(id.ID(95)))
	assert.True(t, l.Covers(id.ID(105)))
	assert.False(t, l.Covers(id.ID(50)))
}

func TestLeafSet_ClosestTo(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 4)
	l.Insert(desc(90))
	l.Insert(desc(110))

	c := l.ClosestTo(id.ID(95))
	assert.Equal(t, id.ID(90), c.ID)

	c = l.ClosestTo(id.ID(100))
	assert.Equal(t, id.ID(100), c.ID)
}

func TestLeafSet_FarthestOnSide(t *testing.T) {
	self := desc(100)
	l := NewLeafSet(self, 2)
	l.Insert(desc(90))
	l.Insert(desc(95))

	f, ok := l.FarthestOnSide(SidePredecessor)
	require.True(t, ok)
	assert.Equal(t, id.ID(90), f.ID)

	_, ok = l.FarthestOnSide(SideSuccessor)
	assert.False(t, ok)
}
