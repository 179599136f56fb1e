package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
)

func TestSelectNextHop_LocalWhenSelfClosestInLeafRange(t *testing.T) {
	self := desc(100)
	leaves := NewLeafSet(self, 4)
	leaves.Insert(desc(90))
	leaves.Insert(desc(110))
	table := NewRoutingTable(self, 16, 16)

	target, result := SelectNextHop(self, leaves, table, nil, id.ID(99), nil, nil)
	assert.Equal(t, HopLocal, result)
	assert.Equal(t, self.ID, target.ID)
}

func TestSelectNextHop_ForwardsToCloserLeaf(t *testing.T) {
	self := desc(100)
	leaves := NewLeafSet(self, 4)
	leaves.Insert(desc(90))
	leaves.Insert(desc(110))
	table := NewRoutingTable(self, 16, 16)

	target, result := SelectNextHop(self, leaves, table, nil, id.ID(91), nil, nil)
	require.Equal(t, HopForward, result)
	assert.Equal(t, id.ID(90), target.ID)
}

func TestSelectNextHop_UsesRoutingTableOutsideLeafRange(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	leaves := NewLeafSet(self, 1)
	leaves.Insert(Descriptor{ID: id.ID(0x00E0), Addr: "pred"})
	leaves.Insert(Descriptor{ID: id.ID(0x0100), Addr: "succ"})

	table := NewRoutingTable(self, 16, 16)
	hop := Descriptor{ID: id.ID(0x0010), Addr: "hop"}
	table.Set(hop, alwaysHealthy)

	key := id.ID(0x0015)
	require.False(t, leaves.Covers(key))

	target, result := SelectNextHop(self, leaves, table, nil, key, alwaysHealthy, nil)
	require.Equal(t, HopForward, result)
	assert.Equal(t, hop.ID, target.ID)
}

func TestSelectNextHop_FallsBackToPeerScan(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	leaves := NewLeafSet(self, 1)
	leaves.Insert(Descriptor{ID: id.ID(0x00E0), Addr: "pred"})
	leaves.Insert(Descriptor{ID: id.ID(0x0100), Addr: "succ"})

	table := NewRoutingTable(self, 16, 16)
	key := id.ID(0x0015)
	require.False(t, leaves.Covers(key))

	candidate := Descriptor{ID: id.ID(0x0010), Addr: "candidate"}
	target, result := SelectNextHop(self, leaves, table, []Descriptor{candidate}, key, alwaysHealthy, nil)
	require.Equal(t, HopForward, result)
	assert.Equal(t, candidate.ID, target.ID)
}

func TestSelectNextHop_FailsWhenNoCandidateBeatsSelf(t *testing.T) {
	self := Descriptor{ID: id.ID(0x00F0), Addr: "self"}
	leaves := NewLeafSet(self, 1)
	leaves.Insert(Descriptor{ID: id.ID(0x00E0), Addr: "pred"})
	leaves.Insert(Descriptor{ID: id.ID(0x0100), Addr: "succ"})

	table := NewRoutingTable(self, 16, 16)
	key := id.ID(0x0015)
	require.False(t, leaves.Covers(key))

	// A candidate that wraps around to land numerically close to key (ring
	// distance 32, versus self's 219) but, because of the wraparound, shares
	// none of key's leading digits. Fallback's prefix requirement rejects it
	// even though it's the nearer node, so selection has nothing left to try
	// but still can't just pick self.
	wrapped := Descriptor{ID: id.Max - 10, Addr: "wrapped"}

	target, result := SelectNextHop(self, leaves, table, []Descriptor{wrapped}, key, alwaysHealthy, nil)
	assert.Equal(t, HopFail, result)
	assert.Equal(t, Descriptor{}, target)
}

func TestSelectNextHop_VisitedExcludesCandidate(t *testing.T) {
	self := desc(100)
	leaves := NewLeafSet(self, 4)
	leaves.Insert(desc(90))
	leaves.Insert(desc(110))
	table := NewRoutingTable(self, 16, 16)

	visited := map[id.ID]bool{id.ID(90): true}
	target, result := SelectNextHop(self, leaves, table, nil, id.ID(91), nil, visited)
	require.Equal(t, HopLocal, result)
	assert.Equal(t, self.ID, target.ID)
}
