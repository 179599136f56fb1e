package node

import (
	"context"

	"github.com/go-kit/kit/log/level"

	"pastryring/id"
	"pastryring/internal/overlay"
	"pastryring/internal/rpc"
)

// Query implements spec.md §4.6: select a next hop for req.Key, execute
// locally if we're the destination, otherwise forward. At most one retry
// is attempted against a freshly recomputed next hop if the chosen peer
// turns out to be unreachable (spec.md §7).
func (c *controller) Query(ctx context.Context, req *rpc.QueryRequest) (*rpc.QueryResponse, error) {
	visited := map[id.ID]bool{c.state.Self().ID: true}
	retried := false

	for {
		next, result := c.state.SelectNextHop(req.Key, visited)
		if result != overlay.HopForward {
			return c.executeLocalQuery(req), nil
		}

		cc, err := c.pool.Get(next.Addr)
		if err != nil {
			c.markUnhealthy(next)
			if retried {
				return c.executeLocalQuery(req), nil
			}
			retried = true
			visited[next.ID] = true
			continue
		}

		client := rpc.NewNodeServiceClient(cc)
		fwd := &rpc.QueryRequest{
			FromID:        req.FromID,
			MatchedDigits: int32(id.SharedPrefixLen(next.ID.Digits(IdentifierBits, c.state.Base()), req.Key.Digits(IdentifierBits, c.state.Base()))),
			Hops:          req.Hops + 1,
			Type:          req.Type,
			Key:           req.Key,
			Value:         req.Value,
			HasValue:      req.HasValue,
		}

		resp, err := client.Query(ctx, fwd)
		if err != nil {
			c.markUnhealthy(next)
			if retried {
				return nil, err
			}
			retried = true
			visited[next.ID] = true
			continue
		}
		return resp, nil
	}
}

// executeLocalQuery runs the Get/Set/Delete operation against the local
// KeyStore, per spec.md §4.6 step 2. The terminal node always fills
// FromID with its own id, discarding whatever the originator sent.
func (c *controller) executeLocalQuery(req *rpc.QueryRequest) *rpc.QueryResponse {
	self := c.state.Self()
	resp := &rpc.QueryResponse{
		FromID: fromDescriptor(self),
		Hops:   req.Hops,
		Key:    req.Key,
	}

	switch req.Type {
	case rpc.QueryGet:
		v, err := c.state.Store.Get(req.Key)
		if err != nil {
			resp.Error = rpc.QueryErrorKeyNotFound
			c.metrics.queriesTotal.WithLabelValues("get", "not_found").Inc()
			return resp
		}
		resp.Value, resp.HasValue = v, true
		c.metrics.queriesTotal.WithLabelValues("get", "ok").Inc()

	case rpc.QuerySet:
		if !req.HasValue {
			resp.Error = rpc.QueryErrorValueNotProvided
			c.metrics.queriesTotal.WithLabelValues("set", "value_not_provided").Inc()
			return resp
		}
		resp.Value = c.state.Store.Set(req.Key, req.Value)
		resp.HasValue = true
		c.metrics.queriesTotal.WithLabelValues("set", "ok").Inc()

	case rpc.QueryDelete:
		v, err := c.state.Store.Delete(req.Key)
		if err != nil {
			resp.Error = rpc.QueryErrorKeyNotFound
			c.metrics.queriesTotal.WithLabelValues("delete", "not_found").Inc()
			return resp
		}
		resp.Value, resp.HasValue = v, true
		c.metrics.queriesTotal.WithLabelValues("delete", "ok").Inc()
	}

	return resp
}

// TransferKeys streams every (key, value) pair this node is no longer the
// closest node for, now that req.Requester has joined (spec.md §4.8).
// Entries are removed only after the full stream has been sent; an error
// partway through leaves the sender's store untouched.
func (c *controller) TransferKeys(req *rpc.TransferKeysRequest, stream rpc.NodeService_TransferKeysServer) error {
	requester := toDescriptor(req.Requester)
	level.Debug(c.log).Log("msg", "key transfer requested", "requester", requester.Addr)

	entries := c.state.Store.TakeOwned(func(key id.ID) bool {
		return c.state.ClosestTo(key).ID == requester.ID
	})

	sent := make([]id.ID, 0, len(entries))
	for _, e := range entries {
		if err := stream.Send(&rpc.TransferKeysEntry{Key: e.Key, Value: e.Value}); err != nil {
			level.Warn(c.log).Log("msg", "key transfer aborted mid-stream", "requester", requester.Addr, "err", err)
			return err
		}
		sent = append(sent, e.Key)
	}

	c.state.Store.ConsumeOwned(sent)
	level.Info(c.log).Log("msg", "key transfer sent", "requester", requester.Addr, "keys", len(sent))
	return nil
}
