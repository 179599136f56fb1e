package overlay

import "pastryring/id"

// RoutingTable is the prefix-digit routing table: one row per digit
// position, Base columns per row. Entry [row][col] holds a node sharing
// exactly `row` leading digits with self and whose digit at position row is
// col.
type RoutingTable struct {
	self Descriptor
	size int
	base int
	rows [][]Descriptor
	set  [][]bool
}

// NewRoutingTable builds an empty table sized for size/base and seeds self
// into every row, matching the Pastry convention that a node is always its
// own best candidate for the cell matching its own digits.
func NewRoutingTable(self Descriptor, size, base int) *RoutingTable {
	rowCount := id.DigitCount(size, base)
	rt := &RoutingTable{
		self: self,
		size: size,
		base: base,
		rows: make([][]Descriptor, rowCount),
		set:  make([][]bool, rowCount),
	}
	for i := range rt.rows {
		rt.rows[i] = make([]Descriptor, base)
		rt.set[i] = make([]bool, base)
	}

	digits := self.ID.Digits(size, base)
	for row, digit := range digits {
		rt.rows[row][digit] = self
		rt.set[row][digit] = true
	}
	return rt
}

func (rt *RoutingTable) clone() *RoutingTable {
	clone := &RoutingTable{self: rt.self, size: rt.size, base: rt.base}
	clone.rows = make([][]Descriptor, len(rt.rows))
	clone.set = make([][]bool, len(rt.set))
	for i := range rt.rows {
		clone.rows[i] = append([]Descriptor(nil), rt.rows[i]...)
		clone.set[i] = append([]bool(nil), rt.set[i]...)
	}
	return clone
}

// Get returns the entry at (row, col), if any is set.
func (rt *RoutingTable) Get(row, col int) (Descriptor, bool) {
	if row < 0 || row >= len(rt.rows) || col < 0 || col >= rt.base {
		return Descriptor{}, false
	}
	return rt.rows[row][col], rt.set[row][col]
}

// Set places entry in its canonical cell, determined by the shared-prefix
// length between entry and self. An existing occupant is kept unless
// occupantHealthy reports it as no longer healthy (the caller passes the
// current health view so the table itself stays policy-free). Returns true
// if the cell's contents changed.
func (rt *RoutingTable) Set(entry Descriptor, occupantHealthy func(Descriptor) bool) bool {
	if entry.ID == rt.self.ID {
		return false
	}

	row, col := rt.cellFor(entry)

	if existing, ok := rt.Get(row, col); ok {
		if existing.ID == entry.ID {
			return false
		}
		if occupantHealthy != nil && occupantHealthy(existing) {
			// Don't evict a healthy occupant; a later proximity metric could
			// justify a swap, but this overlay doesn't track proximity.
			return false
		}
	}

	rt.rows[row][col] = entry
	rt.set[row][col] = true
	return true
}

// Clear empties the cell if it currently holds target, returning the entry
// that was removed.
func (rt *RoutingTable) Clear(target id.ID) (Descriptor, bool) {
	for row := range rt.rows {
		for col := range rt.rows[row] {
			if rt.set[row][col] && rt.rows[row][col].ID == target {
				removed := rt.rows[row][col]
				rt.rows[row][col] = Descriptor{}
				rt.set[row][col] = false
				return removed, true
			}
		}
	}
	return Descriptor{}, false
}

// BestFor returns the entry that should be tried next for key, if the table
// holds one. This is the "routing table prefix cell" step of next-hop
// selection: the row is the shared-prefix length between self and key, the
// column is key's digit at that row.
func (rt *RoutingTable) BestFor(key id.ID) (Descriptor, bool) {
	ourDigits := rt.self.ID.Digits(rt.size, rt.base)
	keyDigits := key.Digits(rt.size, rt.base)
	row := id.SharedPrefixLen(ourDigits, keyDigits)
	if row >= len(rt.rows) {
		return Descriptor{}, false
	}
	return rt.Get(row, int(keyDigits[row]))
}

// Fallback scans candidates (typically every known peer) for one sharing at
// least as many digits with key as self does and strictly closer to key (by
// ring distance) than self, returning whichever such candidate is
// numerically closest to key. This is the rare-case linear scan used when
// the routing table cell for key is empty or unhealthy.
func (rt *RoutingTable) Fallback(key id.ID, candidates []Descriptor) (Descriptor, bool) {
	keyDigits := key.Digits(rt.size, rt.base)
	ourDigits := rt.self.ID.Digits(rt.size, rt.base)
	minPrefix := id.SharedPrefixLen(ourDigits, keyDigits)
	selfDist := id.RingDistance(rt.self.ID, key)

	var (
		best     Descriptor
		haveBest bool
		bestDist id.ID
	)
	for _, c := range candidates {
		cDigits := c.ID.Digits(rt.size, rt.base)
		if id.SharedPrefixLen(cDigits, keyDigits) < minPrefix {
			continue
		}
		dist := id.RingDistance(c.ID, key)
		if id.Compare(dist, selfDist) >= 0 {
			continue
		}
		if !haveBest || id.Compare(dist, bestDist) < 0 {
			best, bestDist, haveBest = c, dist, true
		}
	}
	return best, haveBest
}

// MergeCandidate reports whether candidate would occupy a currently-empty
// or unhealthy cell, without mutating the table. Used when deciding whether
// a gossiped entry is worth incorporating before paying for a Set call.
func (rt *RoutingTable) MergeCandidate(candidate Descriptor, occupantHealthy func(Descriptor) bool) bool {
	if candidate.ID == rt.self.ID {
		return false
	}
	row, col := rt.cellFor(candidate)
	existing, ok := rt.Get(row, col)
	if !ok {
		return true
	}
	if existing.ID == candidate.ID {
		return false
	}
	return occupantHealthy == nil || !occupantHealthy(existing)
}

func (rt *RoutingTable) cellFor(entry Descriptor) (row, col int) {
	ourDigits := rt.self.ID.Digits(rt.size, rt.base)
	entryDigits := entry.ID.Digits(rt.size, rt.base)
	row = id.SharedPrefixLen(ourDigits, entryDigits)
	col = int(entryDigits[row])
	return row, col
}

// Snapshot returns every populated entry in row-major order, used for
// gossip (mixing a row into a peer) and for admin dumps.
func (rt *RoutingTable) Snapshot() []Descriptor {
	out := make([]Descriptor, 0, len(rt.rows)*rt.base)
	for row := range rt.rows {
		for col := range rt.rows[row] {
			if rt.set[row][col] {
				out = append(out, rt.rows[row][col])
			}
		}
	}
	return out
}

// Row returns the populated entries of a single row, used to seed a
// joining peer's table from the matching row of each hop along the join
// path.
func (rt *RoutingTable) Row(row int) []Descriptor {
	if row < 0 || row >= len(rt.rows) {
		return nil
	}
	out := make([]Descriptor, 0, rt.base)
	for col := range rt.rows[row] {
		if rt.set[row][col] {
			out = append(out, rt.rows[row][col])
		}
	}
	return out
}

// RowCount is the number of rows (digit positions) in the table.
func (rt *RoutingTable) RowCount() int { return len(rt.rows) }

// Base is the number of columns per row.
func (rt *RoutingTable) Base() int { return rt.base }
