package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
)

func TestNodeState_PhaseTransitions(t *testing.T) {
	s := NewNodeState(desc(100), 16, 16, 4)
	assert.Equal(t, Initializing, s.Phase())
	s.SetPhase(Serving)
	assert.Equal(t, Serving, s.Phase())
}

func TestNodeState_InsertLeafEvictsAndClearsHealth(t *testing.T) {
	s := NewNodeState(desc(100), 16, 16, 1)
	s.InsertLeaf(desc(90))
	s.MarkHealth(id.ID(90), Unhealthy)

	ev, hadEv, ok := s.InsertLeaf(desc(99))
	require.True(t, ok)
	require.True(t, hadEv)
	assert.Equal(t, id.ID(90), ev.ID)
	assert.Equal(t, Healthy, s.HealthOf(id.ID(90)))
}

func TestNodeState_PeersExcludesSelfAndUnhealthy(t *testing.T) {
	s := NewNodeState(desc(100), 16, 16, 4)
	s.InsertLeaf(desc(90))
	s.MergeRoute(Descriptor{ID: id.ID(10), Addr: "r"})
	s.MarkHealth(id.ID(10), Dead)

	healthyOnly := s.Peers(false)
	var ids []id.ID
	for _, p := range healthyOnly {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, id.ID(90))
	assert.NotContains(t, ids, id.ID(10))

	all := s.Peers(true)
	ids = ids[:0]
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, id.ID(10))
}

func TestNodeState_ClosestTo(t *testing.T) {
	s := NewNodeState(desc(100), 16, 16, 4)
	s.InsertLeaf(desc(90))
	s.InsertLeaf(desc(110))

	c := s.ClosestTo(id.ID(95))
	assert.Equal(t, id.ID(90), c.ID)
}

func TestNodeState_SnapshotConsistentView(t *testing.T) {
	s := NewNodeState(desc(100), 16, 16, 4)
	s.InsertLeaf(desc(90))
	s.SetPhase(Serving)

	dump := s.Snapshot()
	assert.Equal(t, Serving, dump.Phase)
	require.Len(t, dump.Predecessors, 1)
	assert.Equal(t, id.ID(90), dump.Predecessors[0].ID)
}
