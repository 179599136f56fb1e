package node

import (
	"context"

	"github.com/go-kit/kit/log/level"

	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
)

// HealthChanged implements health.Watcher. It's the transport-level failure
// detector of spec.md §4.7: a peer the checker marks Dead is removed from
// whichever of the leaf set/routing table it occupies, and a leaf-set
// departure triggers FixLeafSet repair against the farthest surviving
// same-side neighbor.
func (c *controller) HealthChanged(d overlay.Descriptor, h overlay.Health) {
	c.state.MarkHealth(d.ID, h)
	level.Info(c.log).Log("msg", "peer health changed", "peer", d.Addr, "health", h)

	if h != overlay.Dead {
		// Healthy restores routability; Unhealthy just stops new routing
		// decisions from picking the peer. Neither requires repair.
		return
	}

	defer c.pool.Remove(d.Addr)
	defer c.state.Untrack(d.ID)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	side, isLeaf := leafSideOf(c.state, d)
	if isLeaf {
		c.state.RemoveLeaf(d.ID)
		c.repairLeafSide(ctx, side, d)
		c.metrics.repairsTotal.Inc()
	}

	if _, cleared := c.state.ClearRoute(d.ID); cleared {
		level.Info(c.log).Log("msg", "cleared dead routing-table entry", "peer", d.Addr)
		// Re-population is opportunistic per spec.md §4.7; no active
		// repair for routing-table cells.
	}

	if isLeaf {
		c.notifyPeersChanged()
	}
	c.refreshHealthChecks()
}

// leafSideOf reports which side of the leaf set target is tracked on.
func leafSideOf(state *overlay.NodeState, target overlay.Descriptor) (overlay.Side, bool) {
	for _, p := range state.Predecessors() {
		if p.ID == target.ID {
			return overlay.SidePredecessor, true
		}
	}
	for _, s := range state.Successors() {
		if s.ID == target.ID {
			return overlay.SideSuccessor, true
		}
	}
	return 0, false
}

// repairLeafSide implements spec.md §4.7's FixLeafSet flow: notify the
// farthest surviving same-side neighbor (so it can symmetrically insert
// us), then separately pull that neighbor's own state and merge whatever
// entries are eligible to refill our side. dead, the peer just removed, is
// never re-inserted from the neighbor's state.
func (c *controller) repairLeafSide(ctx context.Context, side overlay.Side, dead overlay.Descriptor) {
	farthest, ok := c.state.FarthestOnSide(side)
	if !ok {
		return
	}

	c.sendFixLeafSet(ctx, farthest)

	cc, err := c.pool.Get(farthest.Addr)
	if err != nil {
		c.markUnhealthy(farthest)
		return
	}
	client := rpc.NewNodeServiceClient(cc)

	resp, err := client.GetNodeState(ctx, &rpc.GetNodeStateRequest{})
	if err != nil {
		c.markUnhealthy(farthest)
		return
	}

	self := c.state.Self()
	merged := append(append([]rpc.Descriptor(nil), resp.Predecessors...), resp.Successors...)
	for _, d := range toDescriptors(merged) {
		if d.ID == self.ID || d.ID == dead.ID {
			continue
		}
		c.state.InsertLeaf(d)
	}
}

func (c *controller) sendFixLeafSet(ctx context.Context, target overlay.Descriptor) {
	cc, err := c.pool.Get(target.Addr)
	if err != nil {
		c.markUnhealthy(target)
		return
	}
	client := rpc.NewNodeServiceClient(cc)

	if _, err := client.FixLeafSet(ctx, &rpc.FixLeafSetRequest{Node: fromDescriptor(c.state.Self())}); err != nil {
		c.markUnhealthy(target)
	}
}
