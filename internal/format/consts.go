// Package format houses the bit-level codec for heap object headers and the
// metadata that precedes large allocations. The goal is to keep every piece
// of address arithmetic and flag packing in one place, independent from the
// public API, so higher-level packages never touch raw masks.
package format

const (
	// HeaderSize is the size of the object header in bytes. Every object in
	// the heap is prefixed by exactly one header; the payload starts at
	// HeaderSize bytes past the object address.
	HeaderSize = 8

	// Granularity is the allocation granule in bytes. Object addresses and
	// encoded sizes are multiples of this value, which is also the scale of
	// the live bitmap (one bit per granule).
	Granularity = 8

	// GranularityMask is the bitmask used for aligning to allocation
	// granules (Granularity - 1).
	GranularityMask = Granularity - 1

	// IndexBits is the number of bits available for the GCInfo index in the
	// low encoded field.
	IndexBits = 14

	// IndexMask extracts the GCInfo index from the low encoded field.
	IndexMask = 1<<IndexBits - 1

	// SizeBits is the number of bits available for the granule count in the
	// high encoded field. The largest encodable object is therefore
	// (1<<SizeBits - 1) * Granularity bytes, well past the large-object
	// cutoff; large allocations store zero and keep their exact size in the
	// LargeMeta record instead.
	SizeBits = 14

	// SizeMask extracts the granule count from the high encoded field.
	SizeMask = 1<<SizeBits - 1

	// MaxEncodableSize is the largest object size the header can record.
	MaxEncodableSize = SizeMask * Granularity
)

// Flag bits inside the two encoded fields. The low field carries identity
// flags that survive across cycles; the high field carries per-cycle sweep
// bookkeeping next to the size so marking touches a single 16-bit word.
const (
	// PinnedBit (low field): the object address must not move. Only
	// meaningful if an evacuating collector is ever layered on top; set for
	// conservatively discovered objects during a cycle.
	PinnedBit = 1 << 14

	// OldBit (low field): the object belongs to the old generation. Objects
	// allocate young and are promoted in place by the sweep that proves them
	// reachable.
	OldBit = 1 << 15

	// FreeBit (high field): sweep bookkeeping for dead objects whose memory
	// has been returned to a hole but not yet reallocated.
	FreeBit = 1 << 14

	// MarkBit (high field): current-cycle reachability.
	MarkBit = 1 << 15
)
