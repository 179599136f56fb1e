package overlay

import (
	"pastryring/id"
)

// LeafSet is the bounded set of 2L nodes numerically closest to self: L
// predecessors (ids less than self) and L successors (ids greater than
// self). It is canonical for routing whenever Covers holds for a key.
//
// NOTE(grounding): side membership is decided by plain numeric comparison
// against self, the same simplification croissant's node package documents
// as a known TODO ("the hash ring isn't really a 'ring'"...). A cluster
// whose live IDs straddle the 0/Max boundary will therefore occasionally
// place an entry on the "wrong" side by one hop; Covers/ClosestTo still use
// true ring distance, so routing correctness is preserved, only the
// predecessor/successor label can be imprecise at the wraparound seam.
type LeafSet struct {
	self         Descriptor
	predecessors *descriptorSet
	successors   *descriptorSet
}

// Side identifies which half of the leaf set an entry belongs to.
type Side int

const (
	SidePredecessor Side = iota
	SideSuccessor
)

// NewLeafSet creates an empty leaf set holding up to half entries per side.
func NewLeafSet(self Descriptor, half int) *LeafSet {
	return &LeafSet{
		self:         self,
		predecessors: newDescriptorSet(half, true),
		successors:   newDescriptorSet(half, false),
	}
}

func (l *LeafSet) clone() *LeafSet {
	return &LeafSet{
		self:         l.self,
		predecessors: l.predecessors.clone(),
		successors:   l.successors.clone(),
	}
}

// Predecessors returns an ordered copy of the predecessor half (nearest to
// self first).
func (l *LeafSet) Predecessors() []Descriptor { return reverseOrFwd(l.predecessors) }

// Successors returns an ordered copy of the successor half (nearest to self
// first).
func (l *LeafSet) Successors() []Descriptor { return l.successors.snapshot() }

func reverseOrFwd(d *descriptorSet) []Descriptor {
	snap := d.snapshot()
	out := make([]Descriptor, len(snap))
	for i, v := range snap {
		out[len(snap)-1-i] = v
	}
	return out
}

// Covers returns true if key lies between the farthest predecessor and the
// farthest successor, inclusive of self.
func (l *LeafSet) Covers(key id.ID) bool {
	if !l.predecessors.isFull() || !l.successors.isFull() {
		// An unfilled leaf set means every known node is within range.
		return true
	}

	ring := make([]Descriptor, 0, len(l.predecessors.entries)+len(l.successors.entries)+1)
	ring = append(ring, l.predecessors.entries...)
	ring = append(ring, l.self)
	ring = append(ring, l.successors.entries...)

	for i := 0; i+1 < len(ring); i++ {
		from, to := ring[i].ID, ring[i+1].ID
		if inRange(from, to, key) {
			return true
		}
	}
	return false
}

func inRange(from, to, key id.ID) bool {
	if id.Compare(from, to) > 0 {
		// Wraps around the ring.
		return id.Compare(from, key) <= 0 || id.Compare(key, to) <= 0
	}
	return id.Compare(from, key) <= 0 && id.Compare(key, to) <= 0
}

// ClosestTo returns the member of the leaf set (or self) minimizing ring
// distance to key; ties are broken by smallest numerical id.
func (l *LeafSet) ClosestTo(key id.ID) Descriptor {
	best := l.self
	bestDist := id.RingDistance(l.self.ID, key)

	consider := func(d Descriptor) {
		dist := id.RingDistance(d.ID, key)
		switch {
		case id.Compare(dist, bestDist) < 0:
			best, bestDist = d, dist
		case id.Compare(dist, bestDist) == 0 && id.Compare(d.ID, best.ID) < 0:
			best = d
		}
	}

	for _, d := range l.predecessors.entries {
		consider(d)
	}
	for _, d := range l.successors.entries {
		consider(d)
	}
	return best
}

// Insert inserts entry into the correct side. If the side is full and entry
// is nearer to self than the current farthest member of that side, the
// farthest is evicted and returned; if the side is full and entry is not
// nearer, entry is dropped (ok=false, no eviction).
func (l *LeafSet) Insert(entry Descriptor) (evicted Descriptor, hadEviction bool, ok bool) {
	if entry.ID == l.self.ID {
		return Descriptor{}, false, false
	}

	set := l.setFor(entry)
	if set == nil {
		return Descriptor{}, false, false
	}

	if !set.isFull() {
		_, _, inserted := set.insert(entry)
		return Descriptor{}, false, inserted
	}

	farthest, hasFarthest := set.farthest()
	if hasFarthest && id.Compare(id.RingDistance(l.self.ID, entry.ID), id.RingDistance(l.self.ID, farthest.ID)) >= 0 {
		// Not an improvement over the current farthest member; drop it.
		return Descriptor{}, false, false
	}

	ev, didEvict, inserted := set.insert(entry)
	return ev, didEvict, inserted
}

// Remove removes id from whichever side holds it.
func (l *LeafSet) Remove(target id.ID) (Descriptor, bool) {
	if d, ok := l.predecessors.removeByID(target); ok {
		return d, true
	}
	if d, ok := l.successors.removeByID(target); ok {
		return d, true
	}
	return Descriptor{}, false
}

// FarthestOnSide returns the farthest still-present entry on the requested
// side, or false if that side is empty.
func (l *LeafSet) FarthestOnSide(side Side) (Descriptor, bool) {
	if side == SidePredecessor {
		return l.predecessors.farthest()
	}
	return l.successors.farthest()
}

// Snapshot returns an ordered copy of all members, predecessors (farthest to
// nearest) then successors (nearest to farthest).
func (l *LeafSet) Snapshot() []Descriptor {
	out := make([]Descriptor, 0, len(l.predecessors.entries)+len(l.successors.entries))
	out = append(out, l.predecessors.entries...)
	out = append(out, l.successors.entries...)
	return out
}

// Contains reports whether id is tracked on either side.
func (l *LeafSet) Contains(target id.ID) bool {
	d := Descriptor{ID: target}
	return l.predecessors.contains(d) || l.successors.contains(d)
}

// SideOf reports which side target is tracked on, if any.
func (l *LeafSet) SideOf(target id.ID) (Side, bool) {
	d := Descriptor{ID: target}
	if l.predecessors.contains(d) {
		return SidePredecessor, true
	}
	if l.successors.contains(d) {
		return SideSuccessor, true
	}
	return 0, false
}

func (l *LeafSet) setFor(entry Descriptor) *descriptorSet {
	switch id.Compare(entry.ID, l.self.ID) {
	case -1:
		return l.predecessors
	case 1:
		return l.successors
	default:
		return nil
	}
}
