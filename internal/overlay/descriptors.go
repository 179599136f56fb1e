package overlay

import (
	"sort"

	"pastryring/id"
)

// Descriptor describes a node in the overlay: its routing identity plus the
// opaque address the transport dials to reach it. Identity is by ID; the
// address is never interpreted by the overlay itself.
type Descriptor struct {
	ID   id.ID
	Addr string
}

// descriptorSet is an ordered, size-bounded set of Descriptors sorted by ID.
// It backs one side (predecessors or successors) of a LeafSet.
type descriptorSet struct {
	entries []Descriptor
	size    int
	// keepBiggest keeps the numerically largest entries when the set is
	// over capacity (used for predecessors, where the entries closest to
	// self, i.e. the biggest, must be kept); successors keep the smallest.
	keepBiggest bool
}

func newDescriptorSet(size int, keepBiggest bool) *descriptorSet {
	return &descriptorSet{size: size, keepBiggest: keepBiggest}
}

func (d *descriptorSet) clone() *descriptorSet {
	clone := &descriptorSet{size: d.size, keepBiggest: d.keepBiggest}
	clone.entries = append(clone.entries, d.entries...)
	return clone
}

func (d *descriptorSet) isFull() bool {
	return len(d.entries) == d.size
}

func (d *descriptorSet) indexOf(v Descriptor) int {
	return sort.Search(len(d.entries), func(i int) bool {
		return id.Compare(d.entries[i].ID, v.ID) >= 0
	})
}

func (d *descriptorSet) contains(v Descriptor) bool {
	i := d.indexOf(v)
	return i < len(d.entries) && d.entries[i].ID == v.ID
}

// insert adds v, evicting the farthest-from-full entry if the set is over
// capacity afterwards. Returns the evicted entry (if any) and whether v was
// inserted at all (false if v already present or the set is full and v is
// the one that would be evicted).
func (d *descriptorSet) insert(v Descriptor) (evicted Descriptor, didEvict, inserted bool) {
	if d.contains(v) {
		return Descriptor{}, false, false
	}

	i := d.indexOf(v)
	d.entries = append(d.entries, Descriptor{})
	copy(d.entries[i+1:], d.entries[i:])
	d.entries[i] = v
	inserted = true

	if len(d.entries) > d.size {
		if d.keepBiggest {
			evicted = d.entries[0]
			d.entries = d.entries[1:]
		} else {
			evicted = d.entries[len(d.entries)-1]
			d.entries = d.entries[:len(d.entries)-1]
		}
		didEvict = true

		if evicted == v {
			// v itself was the entry evicted immediately: it didn't really
			// make it into the set.
			inserted = false
		}
	}

	return evicted, didEvict, inserted
}

func (d *descriptorSet) remove(v Descriptor) (Descriptor, bool) {
	i := d.indexOf(v)
	if i == len(d.entries) || d.entries[i] != v {
		return Descriptor{}, false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return v, true
}

// removeByID removes whichever entry carries the given ID, regardless of its
// recorded address.
func (d *descriptorSet) removeByID(target id.ID) (Descriptor, bool) {
	i := d.indexOf(Descriptor{ID: target})
	if i == len(d.entries) || d.entries[i].ID != target {
		return Descriptor{}, false
	}
	removed := d.entries[i]
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return removed, true
}

// farthest returns the entry farthest from self, i.e. the one that would be
// dropped next if the set needed to shrink.
func (d *descriptorSet) farthest() (Descriptor, bool) {
	if len(d.entries) == 0 {
		return Descriptor{}, false
	}
	if d.keepBiggest {
		return d.entries[0], true
	}
	return d.entries[len(d.entries)-1], true
}

func (d *descriptorSet) snapshot() []Descriptor {
	out := make([]Descriptor, len(d.entries))
	copy(out, d.entries)
	return out
}
