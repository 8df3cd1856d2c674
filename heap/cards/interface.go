package cards

// Marker is the write-barrier-facing side of the card table: record that an
// address was written. Components that only report writes (the heap's
// barrier fast path) should depend on this rather than the full table.
type Marker interface {
	// MarkDirty records a write to addr.
	MarkDirty(addr uintptr)
}

// Scanner is the collector-facing side of the card table: enumerate the
// dirty set and reset it once consumed. Only collection cycles use this.
type Scanner interface {
	// VisitDirty calls fn for every dirty card's address range.
	VisitDirty(fn func(start, end uintptr))

	// ClearAll resets the table after the dirty set has been scanned.
	ClearAll()
}
