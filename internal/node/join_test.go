package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastryring/id"
	"pastryring/internal/overlay"
)

func TestJoin_SingleNodeStartsServing(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")
	assert.Equal(t, overlay.Serving, a.State().Phase)
}

func TestJoin_SecondNodeJoinsLeafSets(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	b := startTestNode(t, id.ID(200))
	mustJoin(t, b, a.addr)

	assert.Equal(t, overlay.Serving, b.State().Phase)

	bState := b.State()
	assert.Contains(t, descriptorIDs(bState.Predecessors, bState.Successors), id.ID(100))

	// The joiner sends its AnnounceArrival RPCs concurrently, but Bootstrap
	// waits for the whole fanout to complete before returning, so a's state
	// should already reflect b.
	aState := a.State()
	assert.Contains(t, descriptorIDs(aState.Predecessors, aState.Successors), id.ID(200))
}

func TestJoin_RejectsSelf(t *testing.T) {
	a := startTestNode(t, id.ID(100))
	mustJoin(t, a, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := a.ctrl.Bootstrap(ctx, a.addr)
	require.Error(t, err)
}

func descriptorIDs(groups ...[]overlay.Descriptor) []id.ID {
	var ids []id.ID
	for _, g := range groups {
		for _, d := range g {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
