package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
	"pastryring/internal/overlay"
)

func TestHealthChanged_DeadLeafIsRemovedAndLeafSideRepaired(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	b := startTestNode(t, id.ID(200))
	mustJoin(t, b, a.addr)

	c := startTestNode(t, id.ID(300))
	mustJoin(t, c, a.addr)

	require.True(t, a.State().Phase == overlay.Serving)

	// Simulate a's health checker noticing b died: it should be dropped
	// from a's leaf set, and a's FixLeafSet/GetNodeState repair exchange
	// against the farthest surviving neighbor should leave a still knowing
	// about c.
	a.ctrl.HealthChanged(overlay.Descriptor{ID: id.ID(200), Addr: b.addr}, overlay.Dead)

	require.Eventually(t, func() bool {
		state := a.State()
		for _, p := range append(state.Predecessors, state.Successors...) {
			if p.ID == id.ID(200) {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)

	aState := a.State()
	assert.Contains(t, descriptorIDs(aState.Predecessors, aState.Successors), id.ID(300))
}

func TestHealthChanged_UnhealthyDoesNotTriggerRepair(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	b := startTestNode(t, id.ID(200))
	mustJoin(t, b, a.addr)

	a.ctrl.HealthChanged(overlay.Descriptor{ID: id.ID(200), Addr: b.addr}, overlay.Unhealthy)

	aState := a.State()
	assert.Contains(t, descriptorIDs(aState.Predecessors, aState.Successors), id.ID(200))
	assert.Equal(t, overlay.Unhealthy, aState.Statuses[id.ID(200)])
}
