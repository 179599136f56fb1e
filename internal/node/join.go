package node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/kit/log/level"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pastryring/id"
	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
	"pastryring/internal/storage"
)

// Bootstrap drives spec.md §4.5 case B from the joining node's side: issue
// a Join to the bootstrap address, apply the JoinResponse to local state,
// announce arrival to every resulting neighbor, and pull a key transfer
// from the nearest leaf.
//
// Only one Bootstrap may run at a time per node (spec.md §9's "concurrent
// joins" non-goal; this design serializes membership mutation through
// joinMtx rather than attempting to detect concurrent joins cluster-wide).
func (c *controller) Bootstrap(ctx context.Context, bootstrapAddr string) error {
	c.joinMtx.Lock()
	defer c.joinMtx.Unlock()

	c.joining.Store(true)
	defer c.joining.Store(false)

	c.state.SetPhase(overlay.Joining)

	self := c.state.Self()

	cc, err := c.pool.Get(bootstrapAddr)
	if err != nil {
		return fmt.Errorf("join failed: dialing bootstrap %s: %w", bootstrapAddr, err)
	}
	client := rpc.NewNodeServiceClient(cc)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout*4)
	defer cancel()

	level.Info(c.log).Log("msg", "joining overlay", "bootstrap", bootstrapAddr, "id", self.ID)

	resp, err := client.Join(ctx, &rpc.JoinRequest{
		Joiner:        fromDescriptor(self),
		Hops:          0,
		MatchedDigits: 0,
	})
	if err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	c.applyJoinResponse(resp)
	c.state.SetPhase(overlay.Serving)

	level.Info(c.log).Log("msg", "join complete", "hops", resp.Hops, "responder", resp.Responder.ID)

	c.refreshHealthChecks()
	c.announceArrival(ctx)
	c.pullTransferKeys(ctx, toDescriptor(resp.Responder))

	return nil
}

// applyJoinResponse populates the leaf set and routing table per spec.md
// §4.5 step 1-2: the responder plus its leaf set become leaf-set
// candidates, and every accumulated routing-table entry is offered to the
// table under its own prefix-digit cell (not necessarily the row it was
// collected at, since intervening hops may not share the joiner's
// prefix at that row).
func (c *controller) applyJoinResponse(resp *rpc.JoinResponse) {
	self := c.state.Self()

	responder := toDescriptor(resp.Responder)
	if responder.ID != self.ID {
		c.state.InsertLeaf(responder)
	}
	for _, d := range toDescriptors(resp.LeafSet) {
		if d.ID == self.ID {
			continue
		}
		c.state.InsertLeaf(d)
	}

	for _, d := range toDescriptors(resp.RoutingTable) {
		if d.ID == self.ID {
			continue
		}
		c.state.MergeRoute(d)
	}
}

// announceArrival fans AnnounceArrival out to every entry in the final leaf
// set and routing table (spec.md §4.5 step 3). Failures are treated as
// ordinary transport failures: the peer is marked unhealthy and the fanout
// continues with the rest.
func (c *controller) announceArrival(ctx context.Context) {
	self := c.state.Self()
	targets := c.state.Peers(true)

	req := &rpc.AnnounceArrivalRequest{Node: fromDescriptor(self)}

	done := make(chan struct{}, len(targets))
	for _, t := range targets {
		t := t
		go func() {
			defer func() { done <- struct{}{} }()

			cc, err := c.pool.Get(t.Addr)
			if err != nil {
				level.Warn(c.log).Log("msg", "failed to announce arrival", "peer", t.Addr, "err", err)
				c.markUnhealthy(t)
				return
			}
			client := rpc.NewNodeServiceClient(cc)
			if _, err := client.AnnounceArrival(ctx, req); err != nil {
				level.Warn(c.log).Log("msg", "failed to announce arrival", "peer", t.Addr, "err", err)
				c.markUnhealthy(t)
			}
		}()
	}
	for range targets {
		<-done
	}
}

// pullTransferKeys issues TransferKeys to the nearest leaf-set neighbor
// (spec.md §4.5 step 4, §4.8). A failure here is non-fatal to the join:
// the new node simply starts empty and will acquire keys as later Query
// traffic forwards through it only once it actually becomes the closest
// node for them (those keys just stay put on their current owner).
func (c *controller) pullTransferKeys(ctx context.Context, preferred overlay.Descriptor) {
	self := c.state.Self()
	target := preferred
	if target.ID == self.ID || target.Addr == "" {
		nearest, ok := nearestLeaf(self, c.state.LeafSnapshot())
		if !ok {
			return
		}
		target = nearest
	}

	cc, err := c.pool.Get(target.Addr)
	if err != nil {
		level.Warn(c.log).Log("msg", "key transfer failed", "from", target.Addr, "err", err)
		c.markUnhealthy(target)
		return
	}
	client := rpc.NewNodeServiceClient(cc)

	stream, err := client.TransferKeys(ctx, &rpc.TransferKeysRequest{Requester: fromDescriptor(self)})
	if err != nil {
		level.Warn(c.log).Log("msg", "key transfer failed", "from", target.Addr, "err", err)
		c.markUnhealthy(target)
		return
	}

	var entries []storage.Entry
	for {
		entry, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// An aborted stream discards whatever partial data arrived;
			// the sender independently keeps everything since it only
			// deletes after a fully consumed stream.
			level.Warn(c.log).Log("msg", "key transfer stream aborted", "from", target.Addr, "err", err)
			return
		}
		entries = append(entries, storage.Entry{Key: entry.Key, Value: entry.Value})
	}

	c.state.Store.Merge(entries)
	level.Info(c.log).Log("msg", "key transfer complete", "from", target.Addr, "keys", len(entries))
}

// nearestLeaf returns the leaf-set member numerically closest to self by
// ring distance, used when no better candidate (the join responder) is
// available.
func nearestLeaf(self overlay.Descriptor, leaves []overlay.Descriptor) (overlay.Descriptor, bool) {
	if len(leaves) == 0 {
		return overlay.Descriptor{}, false
	}
	best := leaves[0]
	bestDist := id.RingDistance(self.ID, best.ID)
	for _, l := range leaves[1:] {
		d := id.RingDistance(self.ID, l.ID)
		if id.Compare(d, bestDist) < 0 {
			best, bestDist = l, d
		}
	}
	return best, true
}

// Join is the server-side handler implementing spec.md §4.5's recursive
// per-hop behavior. No retry is attempted on forwarding failure (spec.md
// §7: "none for Join (caller retries)"); a transport failure just
// surfaces to whichever peer called us.
func (c *controller) Join(ctx context.Context, req *rpc.JoinRequest) (*rpc.JoinResponse, error) {
	self := c.state.Self()
	joiner := toDescriptor(req.Joiner)

	if req.Joiner.Addr == "" {
		return nil, status.Error(codes.InvalidArgument, "join request missing joiner address")
	}
	if joiner.ID == self.ID {
		return nil, status.Error(codes.InvalidArgument, "node cannot join itself")
	}

	c.metrics.joinsTotal.Inc()

	// Step 1: append this node's row (matched_digits) to the accumulated
	// routing table the joiner will seed from.
	accumulated := append([]rpc.Descriptor(nil), req.RoutingTable...)
	for _, d := range c.state.TableRow(int(req.MatchedDigits)) {
		if d.ID == joiner.ID {
			continue
		}
		accumulated = append(accumulated, fromDescriptor(d))
	}

	// Step 2.
	visited := map[id.ID]bool{self.ID: true}
	next, result := c.state.SelectNextHop(joiner.ID, visited)

	if result != overlay.HopForward {
		// Step 3: we're the destination.
		leafSet := append([]overlay.Descriptor{self}, c.state.LeafSnapshot()...)
		return &rpc.JoinResponse{
			Responder:    fromDescriptor(self),
			Hops:         req.Hops,
			LeafSet:      fromDescriptors(leafSet),
			RoutingTable: accumulated,
		}, nil
	}

	// Step 4: forward.
	cc, err := c.pool.Get(next.Addr)
	if err != nil {
		c.markUnhealthy(next)
		return nil, status.Errorf(codes.Unavailable, "forwarding join to %s: %s", next.Addr, err)
	}
	client := rpc.NewNodeServiceClient(cc)

	nextMatched := id.SharedPrefixLen(
		next.ID.Digits(IdentifierBits, c.state.Base()),
		joiner.ID.Digits(IdentifierBits, c.state.Base()),
	)

	resp, err := client.Join(ctx, &rpc.JoinRequest{
		Joiner:        req.Joiner,
		Hops:          req.Hops + 1,
		MatchedDigits: int32(nextMatched),
		RoutingTable:  accumulated,
	})
	if err != nil {
		c.markUnhealthy(next)
		return nil, err
	}
	return resp, nil
}

