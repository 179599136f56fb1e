package overlay

import (
	"sync"
	"time"

	"pastryring/id"
	"pastryring/internal/storage"
)

// NodeState is the tuple (self, leaf set, routing table, key store,
// lifecycle phase) owned exclusively by one node. Leaf set, routing table,
// health statuses, and lifecycle are guarded by a single-writer/many-reader
// lock; the KeyStore carries its own internal locking and is never guarded
// by NodeState's mutex, since key lookups must stay cheap even while a
// membership write is in flight.
//
// Callers must not perform blocking I/O (RPCs) while holding a write lock;
// acquire Lock/Unlock only around the in-memory mutation itself.
type NodeState struct {
	mu sync.RWMutex

	self Descriptor
	size int
	base int

	leaves *LeafSet
	table  *RoutingTable

	statuses map[id.ID]Health

	phase       Phase
	lastUpdated time.Time

	// Store is the node's KeyStore. Safe for concurrent use independent of
	// the rest of NodeState.
	Store *storage.Store
}

// NewNodeState creates a NodeState for self with an empty leaf set and
// routing table, base columns per routing-table row (the branching factor
// k, a power of two), and leafHalf entries per leaf-set side.
func NewNodeState(self Descriptor, size, base, leafHalf int) *NodeState {
	return &NodeState{
		self:        self,
		size:        size,
		base:        base,
		leaves:      NewLeafSet(self, leafHalf),
		table:       NewRoutingTable(self, size, base),
		statuses:    make(map[id.ID]Health),
		phase:       Initializing,
		lastUpdated: time.Now(),
		Store:       storage.New(),
	}
}

// Self returns the node's own descriptor. Immutable for the state's
// lifetime, so no lock is needed.
func (s *NodeState) Self() Descriptor { return s.self }

// Size and Base are the identifier bit width and digit base; also
// immutable.
func (s *NodeState) Size() int { return s.size }
func (s *NodeState) Base() int { return s.base }

// Phase returns the current lifecycle phase.
func (s *NodeState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// SetPhase transitions the lifecycle phase.
func (s *NodeState) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
	s.touch()
}

// LastUpdated returns the last time leaf set, routing table, or health
// statuses changed.
func (s *NodeState) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

func (s *NodeState) touch() {
	s.lastUpdated = time.Now()
}

// HealthOf reports the currently tracked health of a peer id; descriptors
// never observed default to Healthy.
func (s *NodeState) HealthOf(target id.ID) Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthOf(target)
}

func (s *NodeState) healthOf(target id.ID) Health {
	h, ok := s.statuses[target]
	if !ok {
		return Healthy
	}
	return h
}

func (s *NodeState) isHealthy(d Descriptor) bool {
	return s.healthOf(d.ID) == Healthy
}

// MarkHealth records the health of a peer id.
func (s *NodeState) MarkHealth(target id.ID, h Health) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[target] = h
	s.touch()
}

// Untrack discards any recorded health status for target. Called once a
// dead peer has been fully repaired out of the leaf set and routing table,
// so the status map doesn't accumulate entries for peers no longer
// referenced anywhere in the state.
func (s *NodeState) Untrack(target id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, target)
}

// LeafSnapshot returns an ordered copy of the leaf set.
func (s *NodeState) LeafSnapshot() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves.Snapshot()
}

// Predecessors and Successors return ordered copies of each leaf-set half.
func (s *NodeState) Predecessors() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves.Predecessors()
}

func (s *NodeState) Successors() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves.Successors()
}

// IsLeaf reports whether target is currently tracked in the leaf set.
func (s *NodeState) IsLeaf(target id.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves.Contains(target)
}

// InsertLeaf inserts entry into the leaf set, returning whatever it
// evicted. A successful insert clears the evicted peer's health record, if
// any, and marks entry healthy.
func (s *NodeState) InsertLeaf(entry Descriptor) (evicted Descriptor, hadEviction, inserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, hadEviction, inserted = s.leaves.Insert(entry)
	if inserted {
		s.statuses[entry.ID] = Healthy
		s.touch()
	}
	if hadEviction {
		delete(s.statuses, evicted.ID)
	}
	return
}

// RemoveLeaf removes target from the leaf set, if present.
func (s *NodeState) RemoveLeaf(target id.ID) (Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.leaves.Remove(target)
	if ok {
		delete(s.statuses, target)
		s.touch()
	}
	return d, ok
}

// FarthestOnSide returns the farthest surviving leaf-set member on side.
func (s *NodeState) FarthestOnSide(side Side) (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves.FarthestOnSide(side)
}

// TableGet returns the routing-table entry at (row, col).
func (s *NodeState) TableGet(row, col int) (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Get(row, col)
}

// TableRow returns the populated entries of a routing-table row.
func (s *NodeState) TableRow(row int) []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Row(row)
}

// TableRowCount and TableBase expose the table's dimensions.
func (s *NodeState) TableRowCount() int { return s.table.RowCount() }
func (s *NodeState) TableBase() int     { return s.table.Base() }

// MergeRoute offers entry to the routing table under the first-writer-wins
// policy, keeping a currently healthy occupant. Returns true if the table
// changed.
func (s *NodeState) MergeRoute(entry Descriptor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.table.Set(entry, s.isHealthy)
	if changed {
		if _, known := s.statuses[entry.ID]; !known {
			s.statuses[entry.ID] = Healthy
		}
		s.touch()
	}
	return changed
}

// ClearRoute empties whichever cell holds target.
func (s *NodeState) ClearRoute(target id.ID) (Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.table.Clear(target)
	if ok {
		s.touch()
	}
	return d, ok
}

// Peers returns the unique set of known peers (leaf set plus routing
// table), excluding self. If all is false, only healthy peers are
// returned.
func (s *NodeState) Peers(all bool) []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peers(all)
}

func (s *NodeState) peers(all bool) []Descriptor {
	seen := make(map[id.ID]Descriptor)
	for _, d := range s.leaves.Snapshot() {
		seen[d.ID] = d
	}
	for _, d := range s.table.Snapshot() {
		if d.ID == s.self.ID {
			continue
		}
		seen[d.ID] = d
	}

	out := make([]Descriptor, 0, len(seen))
	for _, d := range seen {
		if !all && s.healthOf(d.ID) != Healthy {
			continue
		}
		out = append(out, d)
	}
	return out
}

// SelectNextHop runs the next-hop algorithm against the current leaf set
// and routing table, treating any peer in visited as ineligible.
func (s *NodeState) SelectNextHop(key id.ID, visited map[id.ID]bool) (Descriptor, HopResult) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := s.peers(false)
	return SelectNextHop(s.self, s.leaves, s.table, peers, key, s.isHealthy, visited)
}

// ClosestTo returns whichever known peer (or self) is numerically closest
// to key, considering the full peer set rather than just leaf-set
// coverage; ties are broken by smallest numerical id. Used by TransferKeys
// to decide key ownership.
func (s *NodeState) ClosestTo(key id.ID) Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := s.self
	bestDist := id.RingDistance(s.self.ID, key)
	for _, p := range s.peers(false) {
		dist := id.RingDistance(p.ID, key)
		cmp := id.Compare(dist, bestDist)
		if cmp < 0 || (cmp == 0 && id.Compare(p.ID, best.ID) < 0) {
			best, bestDist = p, dist
		}
	}
	return best
}

// Dump is a read-only, point-in-time view of NodeState used for admin
// dumps and GetNodeState responses.
type Dump struct {
	Self         Descriptor
	Size, Base   int
	Predecessors []Descriptor
	Successors   []Descriptor
	Routing      [][]Descriptor
	Statuses     map[id.ID]Health
	Phase        Phase
	LastUpdated  time.Time
}

// Snapshot takes a single consistent read-lock view of the state.
func (s *NodeState) Snapshot() Dump {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([][]Descriptor, s.table.RowCount())
	for r := range rows {
		rows[r] = s.table.Row(r)
	}

	statuses := make(map[id.ID]Health, len(s.statuses))
	for k, v := range s.statuses {
		statuses[k] = v
	}

	return Dump{
		Self:         s.self,
		Size:         s.size,
		Base:         s.base,
		Predecessors: s.leaves.Predecessors(),
		Successors:   s.leaves.Successors(),
		Routing:      rows,
		Statuses:     statuses,
		Phase:        s.phase,
		LastUpdated:  s.lastUpdated,
	}
}
