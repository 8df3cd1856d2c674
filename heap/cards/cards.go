// Package cards implements the card table behind the generational write
// barrier.
//
// The table keeps one byte per fixed-size slice ("card") of the block-space
// address range. The barrier dirties the card of a written object; a minor
// collection visits dirty cards to find old-generation objects that may now
// reference young ones, then resets the table. Large objects live outside
// the covered range and track writes in their own allocation metadata.
package cards

const (
	// Shift is the log2 of the card size in bytes.
	Shift = 10

	// Size is the number of heap bytes covered by one card byte.
	Size = 1 << Shift

	// Clean is the value of a card with no recorded writes.
	Clean = 0x00

	// Dirty is the value the barrier writes. Values between Clean and Dirty
	// are reserved for card aging.
	Dirty = 0x70
)

// Table is a card table over the address range [base, base+span). The zero
// value is unusable; obtain tables from New.
type Table struct {
	base  uintptr
	limit uintptr
	bytes []byte
}

var (
	_ Marker  = (*Table)(nil)
	_ Scanner = (*Table)(nil)
)

// New returns a table covering [base, base+span). base should sit on a card
// boundary so card edges line up with block edges.
func New(base, span uintptr) *Table {
	n := (span + Size - 1) >> Shift
	return &Table{
		base:  base,
		limit: base + span,
		bytes: make([]byte, n),
	}
}

// Covers reports whether addr falls inside the tracked range.
func (t *Table) Covers(addr uintptr) bool {
	return addr >= t.base && addr < t.limit
}

// MarkDirty records a write to addr. Addresses outside the tracked range are
// ignored.
func (t *Table) MarkDirty(addr uintptr) {
	if !t.Covers(addr) {
		return
	}
	t.bytes[(addr-t.base)>>Shift] = Dirty
}

// IsDirty reports whether the card holding addr has a recorded write.
func (t *Table) IsDirty(addr uintptr) bool {
	if !t.Covers(addr) {
		return false
	}
	return t.bytes[(addr-t.base)>>Shift] != Clean
}

// VisitDirty calls fn with the address range of every dirty card, in
// address order. fn must not dirty further cards.
func (t *Table) VisitDirty(fn func(start, end uintptr)) {
	for i, b := range t.bytes {
		if b == Clean {
			continue
		}
		start := t.base + uintptr(i)<<Shift
		end := start + Size
		if end > t.limit {
			end = t.limit
		}
		fn(start, end)
	}
}

// ClearAll resets every card to Clean. Run by the collection cycle that
// consumed the dirty set; the mutator never clears cards.
func (t *Table) ClearAll() {
	clear(t.bytes)
}

// DirtyCount returns the number of dirty cards, for statistics and tests.
func (t *Table) DirtyCount() int {
	n := 0
	for _, b := range t.bytes {
		if b != Clean {
			n++
		}
	}
	return n
}
