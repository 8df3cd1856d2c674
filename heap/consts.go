package heap

import "github.com/joshuapare/gckit/internal/format"

const (
	// BlockSize is the unit of the block space. The reservation is carved
	// into BlockSize-aligned blocks and allocators own one block at a time.
	BlockSize = 32 * 1024

	// LineSize is the reclamation granule inside a block. Sweeping rebuilds
	// line occupancy and the bump allocator reuses whole free lines.
	LineSize = 256

	// LineCount is the number of lines in one block.
	LineCount = BlockSize / LineSize

	// MediumCutoff splits the normal and overflow bump allocators. Cells of
	// one line or more go to the overflow allocator, which never hunts
	// holes, so every hole the normal allocator sees fits at least one cell.
	MediumCutoff = LineSize

	// LargeCutoff routes requests to the large object space. A block holds
	// at least four large-cutoff cells, anything bigger gets its own mapping.
	LargeCutoff = BlockSize / 4

	// MapChunkSize is the mapping quantum of the large object space. Each
	// large object occupies a private mapping rounded up to this size.
	MapChunkSize = 16 * 1024

	// MinObjectSize is the smallest cell the heap hands out: one header
	// plus one granule of payload.
	MinObjectSize = format.HeaderSize + format.Granularity
)

const (
	// preciseCutoff bounds the linear portion of the size class table.
	// Sizes up to it round to exact sizeStep multiples.
	preciseCutoff = 80

	// sizeStep is the spacing of the linear size classes and the snap
	// granule for the geometric ones.
	sizeStep = 16
)

const (
	// initialHeapBudget seeds the full-collection trigger before the first
	// growth decision.
	initialHeapBudget = 4 << 20

	// minEdenBudget keeps the allocation budget from collapsing when live
	// data fills the heap budget, so mutators always make some progress
	// between collections.
	minEdenBudget = 64 << 10
)

// debugChecks enables extra assertions on hot paths. Left off in normal
// builds; flip on when chasing heap corruption.
const debugChecks = false
