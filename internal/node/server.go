package node

import (
	"context"

	"github.com/go-kit/kit/log/level"
	"google.golang.org/protobuf/types/known/emptypb"

	"pastryring/internal/rpc"
)

// GetNodeState implements spec.md §4.9's read-only (self_id, leaf_set)
// endpoint.
func (c *controller) GetNodeState(ctx context.Context, _ *rpc.GetNodeStateRequest) (*rpc.GetNodeStateResponse, error) {
	dump := c.state.Snapshot()
	return &rpc.GetNodeStateResponse{
		Self:         fromDescriptor(dump.Self),
		Predecessors: fromDescriptors(dump.Predecessors),
		Successors:   fromDescriptors(dump.Successors),
	}, nil
}

// GetNodeTableEntry implements spec.md §4.9's single routing-table cell
// lookup.
func (c *controller) GetNodeTableEntry(ctx context.Context, req *rpc.GetNodeTableEntryRequest) (*rpc.GetNodeTableEntryResponse, error) {
	d, ok := c.state.TableGet(int(req.Row), int(req.Column))
	return &rpc.GetNodeTableEntryResponse{Present: ok, Entry: fromDescriptor(d)}, nil
}

// AnnounceArrival is the fire-and-forget gossip notification of spec.md
// §4.5/§4.7: the recipient inserts the newly arrived node into both its
// leaf set and routing table.
func (c *controller) AnnounceArrival(ctx context.Context, req *rpc.AnnounceArrivalRequest) (*emptypb.Empty, error) {
	d := toDescriptor(req.Node)
	level.Debug(c.log).Log("msg", "peer arrival announced", "peer", d.Addr, "id", d.ID)

	_, _, inserted := c.state.InsertLeaf(d)
	c.state.MergeRoute(d)

	if inserted {
		c.refreshHealthChecks()
		c.notifyPeersChanged()
	}
	return &emptypb.Empty{}, nil
}

// FixLeafSet is spec.md §4.7's repair notification: the recipient
// symmetrically inserts the sender into its own leaf set and does not
// reply with data.
func (c *controller) FixLeafSet(ctx context.Context, req *rpc.FixLeafSetRequest) (*emptypb.Empty, error) {
	d := toDescriptor(req.Node)
	level.Debug(c.log).Log("msg", "fix-leaf-set received", "peer", d.Addr, "id", d.ID)

	_, _, inserted := c.state.InsertLeaf(d)
	if inserted {
		c.refreshHealthChecks()
		c.notifyPeersChanged()
	}
	return &emptypb.Empty{}, nil
}
