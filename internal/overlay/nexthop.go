package overlay

import "pastryring/id"

// HopResult classifies the outcome of next-hop selection.
type HopResult int

const (
	// HopLocal means self is the closest known node to the key; the
	// operation should be served locally.
	HopLocal HopResult = iota
	// HopForward means the message should be forwarded to Target.
	HopForward
	// HopFail means no usable next hop could be found, likely a routing
	// bug or a completely empty table.
	HopFail
)

func (r HopResult) String() string {
	switch r {
	case HopLocal:
		return "local"
	case HopForward:
		return "forward"
	default:
		return "fail"
	}
}

// SelectNextHop implements the three-step next-hop algorithm:
//
//  1. If the leaf set covers key, route to whichever leaf (or self) is
//     numerically closest; ties go to the smaller id.
//  2. Otherwise consult the routing table cell for key's next digit.
//  3. Otherwise fall back to a linear scan of every known, healthy peer for
//     one with at least as long a shared prefix with key as self has,
//     picking the one numerically closest to key.
//
// healthy reports whether a candidate descriptor is currently considered
// healthy; unhealthy candidates are never selected. visited holds ids
// already on the path for this request (the caller itself always counts as
// visited) so a forwarding loop can't immediately bounce a message back.
func SelectNextHop(
	self Descriptor,
	leaves *LeafSet,
	table *RoutingTable,
	peers []Descriptor,
	key id.ID,
	healthy func(Descriptor) bool,
	visited map[id.ID]bool,
) (target Descriptor, result HopResult) {
	if healthy == nil {
		healthy = func(Descriptor) bool { return true }
	}
	notVisited := func(d Descriptor) bool {
		return visited == nil || !visited[d.ID]
	}

	if leaves.Covers(key) {
		best := self
		bestDist := id.RingDistance(self.ID, key)

		for _, l := range leaves.Snapshot() {
			if !healthy(l) || !notVisited(l) {
				continue
			}
			dist := id.RingDistance(l.ID, key)
			cmp := id.Compare(dist, bestDist)
			if cmp < 0 || (cmp == 0 && id.Compare(l.ID, best.ID) < 0) {
				best, bestDist = l, dist
			}
		}

		if best.ID == self.ID {
			return self, HopLocal
		}
		return best, HopForward
	}

	if entry, ok := table.BestFor(key); ok && healthy(entry) && notVisited(entry) {
		if entry.ID == self.ID {
			return self, HopLocal
		}
		return entry, HopForward
	}

	healthyPeers := make([]Descriptor, 0, len(peers))
	for _, p := range peers {
		if healthy(p) && notVisited(p) {
			healthyPeers = append(healthyPeers, p)
		}
	}

	if entry, ok := table.Fallback(key, healthyPeers); ok {
		if entry.ID == self.ID {
			return self, HopLocal
		}
		return entry, HopForward
	}

	// Nothing in the routing table or peer set beat our own distance; if we
	// are in fact the closest known node, serve locally rather than fail.
	localDist := id.RingDistance(self.ID, key)
	closestIsSelf := true
	for _, p := range healthyPeers {
		if id.Compare(id.RingDistance(p.ID, key), localDist) < 0 {
			closestIsSelf = false
			break
		}
	}
	if closestIsSelf {
		return self, HopLocal
	}

	return Descriptor{}, HopFail
}
