package heap

import "github.com/joshuapare/gckit/internal/mmap"

// blockState tracks where a block sits in the allocate/sweep lifecycle.
type blockState uint8

const (
	blockFree       blockState = iota // on the free list, decommitted
	blockActive                       // owned by a bump allocator
	blockRecyclable                   // swept with at least one reusable hole
	blockFull                         // swept with no usable hole, or retired
)

// blockMeta is the per-block bookkeeping rebuilt by every sweep. A nonzero
// line byte means a survivor overlaps that line.
type blockMeta struct {
	state blockState
	holes uint16
	lines [LineCount]uint8
}

// blockSpace carves one virtual reservation into BlockSize-aligned blocks.
// Blocks are committed on first use and decommitted when a sweep finds them
// empty, so the reservation costs physical memory only for live blocks.
type blockSpace struct {
	region *mmap.Region
	base   uintptr
	limit  uintptr
	meta   []blockMeta

	next       int   // first never-committed block
	free       []int // decommitted blocks, ready for reuse
	recyclable []int // swept blocks with holes, rebuilt by each sweep
	inUse      int   // blocks counted against committed memory
}

func newBlockSpace(region *mmap.Region, base uintptr, nblocks int) *blockSpace {
	return &blockSpace{
		region: region,
		base:   base,
		limit:  base + uintptr(nblocks)*BlockSize,
		meta:   make([]blockMeta, nblocks),
	}
}

// contains reports whether addr falls inside the block space reservation.
func (s *blockSpace) contains(addr uintptr) bool {
	return addr >= s.base && addr < s.limit
}

func (s *blockSpace) blockIndex(addr uintptr) int {
	return int((addr - s.base) / BlockSize)
}

func (s *blockSpace) blockStart(i int) uintptr {
	return s.base + uintptr(i)*BlockSize
}

func (s *blockSpace) lineAddr(i, line int) uintptr {
	return s.blockStart(i) + uintptr(line)*LineSize
}

// acquire hands out a usable empty block: off the free list when possible,
// otherwise freshly committed from the tail of the reservation. Returns -1
// when the reservation is exhausted. Memory is zeroed either way.
func (s *blockSpace) acquire() int {
	if n := len(s.free); n > 0 {
		i := s.free[n-1]
		s.free = s.free[:n-1]
		s.meta[i].state = blockActive
		s.inUse++
		return i
	}
	if s.next >= len(s.meta) {
		return -1
	}
	i := s.next
	if err := s.region.Commit(s.blockStart(i), BlockSize); err != nil {
		return -1
	}
	s.next++
	s.meta[i].state = blockActive
	s.inUse++
	return i
}

// popRecyclable hands out a swept block with holes, or -1.
func (s *blockSpace) popRecyclable() int {
	n := len(s.recyclable)
	if n == 0 {
		return -1
	}
	i := s.recyclable[n-1]
	s.recyclable = s.recyclable[:n-1]
	s.meta[i].state = blockActive
	return i
}

// retire marks an allocator-owned block full until the next sweep.
func (s *blockSpace) retire(i int) {
	s.meta[i].state = blockFull
}

// release returns an empty block to the free list and drops its pages.
func (s *blockSpace) release(i int) {
	m := &s.meta[i]
	m.state = blockFree
	m.holes = 0
	clear(m.lines[:])
	_ = s.region.Decommit(s.blockStart(i), BlockSize)
	s.free = append(s.free, i)
	s.inUse--
}

// findHole returns the first run of free lines at or after from as a
// half-open line interval.
func (s *blockSpace) findHole(m *blockMeta, from int) (start, end int, ok bool) {
	i := from
	for i < LineCount && m.lines[i] != 0 {
		i++
	}
	if i == LineCount {
		return 0, 0, false
	}
	start = i
	for i < LineCount && m.lines[i] == 0 {
		i++
	}
	return start, i, true
}

// markLines records that an object spanning [addr, addr+size) occupies its
// lines. Objects never cross block boundaries.
func (s *blockSpace) markLines(m *blockMeta, blockBase, addr, size uintptr) {
	first := (addr - blockBase) / LineSize
	last := (addr + size - 1 - blockBase) / LineSize
	for l := first; l <= last; l++ {
		m.lines[l] = 1
	}
}

// countHoles tallies the maximal runs of free lines in a swept block.
func countHoles(m *blockMeta) uint16 {
	var holes uint16
	inHole := false
	for _, l := range m.lines {
		switch {
		case l == 0 && !inHole:
			holes++
			inHole = true
		case l != 0:
			inHole = false
		}
	}
	return holes
}

// committedBytes reports block space memory counted against the heap cap.
// Free-listed blocks are decommitted and cost nothing.
func (s *blockSpace) committedBytes() uintptr {
	return uintptr(s.inUse) * BlockSize
}
