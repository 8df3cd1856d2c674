package heap

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// bumpCursor is the state of one bump allocator: a window [cursor, limit)
// inside an owned block. The normal cursor hunts holes left by the last
// sweep; the overflow cursor only ever takes empty blocks.
type bumpCursor struct {
	block  int // owned block index, -1 when none
	cursor uintptr
	limit  uintptr
	scan   int // next line to examine when hole hunting
}

func (c *bumpCursor) reset() {
	c.block = -1
	c.cursor, c.limit = 0, 0
	c.scan = 0
}

// Allocate returns a zeroed cell of at least size bytes described by index,
// or the nil Ref when memory cannot be found. Size counts the 8-byte header;
// the usable bytes are Ref.Payload through Ref.PayloadSize. Cells round up
// to the object's size class. Allocation never triggers a collection and
// panics mid-cycle.
func (h *Heap) Allocate(size uintptr, index gckit.GCInfoIndex) gckit.Ref {
	gckit.CheckIndex(index)
	if h.closed {
		panic("gc: allocate on closed heap")
	}
	if h.phase != phaseIdle {
		panic("gc: allocate during collection")
	}

	total := format.AlignGranule(size)
	if total < MinObjectSize {
		total = MinObjectSize
	}

	var ref gckit.Ref
	if total >= LargeCutoff {
		ref = h.allocateLarge(total, index)
	} else if cell := h.classes.sizeFor(total); cell < MediumCutoff {
		ref = h.bump(&h.normal, cell, index, true)
	} else {
		ref = h.bump(&h.overflow, cell, index, false)
	}
	if ref.IsNil() {
		if h.cfg.Verbose {
			h.logf("allocation of %d bytes failed, committed %d of cap", total, h.committed())
		}
		return ref
	}

	h.bytesThisCycle += ref.Size()
	h.bytesAllocated += uint64(ref.Size())
	h.objectsAllocated++
	if h.logAlloc {
		h.logf("alloc %d bytes index %d at %#x", ref.Size(), index, uintptr(ref))
	}
	return ref
}

// AllocateOrFail is Allocate for embedders that cannot take nil: each
// failure triggers a full collection and a retry, three times, before
// giving up with a panic.
func (h *Heap) AllocateOrFail(size uintptr, index gckit.GCInfoIndex) gckit.Ref {
	if ref := h.Allocate(size, index); !ref.IsNil() {
		return ref
	}
	for try := 0; try < 3; try++ {
		h.Collect()
		if ref := h.Allocate(size, index); !ref.IsNil() {
			return ref
		}
	}
	panic(fmt.Sprintf("gc: out of memory allocating %d bytes", size))
}

func (h *Heap) bump(c *bumpCursor, size uintptr, index gckit.GCInfoIndex, holes bool) gckit.Ref {
	for {
		if c.cursor+size <= c.limit {
			addr := c.cursor
			c.cursor += size
			h.installObject(addr, size, index)
			return gckit.Ref(addr)
		}
		if !h.refill(c, size, holes) {
			return 0
		}
	}
}

// refill moves the cursor to a window with room for size bytes: the next
// hole of the owned block, a recyclable block, then an empty block. Reports
// false when the block space is exhausted.
func (h *Heap) refill(c *bumpCursor, size uintptr, holes bool) bool {
	for {
		if holes && c.block >= 0 {
			m := &h.space.meta[c.block]
			for c.scan < LineCount {
				start, end, ok := h.space.findHole(m, c.scan)
				if !ok {
					c.scan = LineCount
					break
				}
				c.scan = end
				c.cursor = h.space.lineAddr(c.block, start)
				c.limit = h.space.lineAddr(c.block, end)
				if c.limit-c.cursor >= size {
					return true
				}
			}
		}
		if c.block >= 0 {
			h.space.retire(c.block)
			c.reset()
		}
		if holes {
			if i := h.space.popRecyclable(); i >= 0 {
				c.block = i
				c.scan = 0
				continue
			}
		}
		if !h.commitOK(BlockSize) {
			return false
		}
		i := h.space.acquire()
		if i < 0 {
			return false
		}
		c.block = i
		c.cursor = h.space.blockStart(i)
		c.limit = c.cursor + BlockSize
		c.scan = LineCount
		return true
	}
}

func (h *Heap) allocateLarge(total uintptr, index gckit.GCInfoIndex) gckit.Ref {
	mapLen := format.AlignUp(format.LargeMetaSize+format.AlignGranule(total), MapChunkSize)
	if !h.commitOK(mapLen) {
		return 0
	}
	return gckit.Ref(h.large.allocate(total, uint16(index)))
}

// installObject zeroes the cell, writes its header, and records the start
// bit. Recycled holes hold stale bytes from dead objects, hence the
// unconditional clear.
func (h *Heap) installObject(addr, size uintptr, index gckit.GCInfoIndex) {
	if debugChecks && addr&(format.Granularity-1) != 0 {
		panic("gc: misaligned allocation")
	}
	zeroRange(addr, size)
	*format.At(addr) = format.Make(uint16(index), size)
	h.live.Set(addr)
}

// committed reports bytes counted against MaxHeapSize.
func (h *Heap) committed() uintptr {
	return h.space.committedBytes() + h.large.mapped
}

// commitOK reports whether committing n more bytes stays under the cap.
func (h *Heap) commitOK(n uintptr) bool {
	max := h.cfg.MaxHeapSize
	return max == 0 || h.committed()+n <= max
}

func zeroRange(addr, n uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n) //nolint:govet // heap memory lives outside the Go heap
	clear(b)
}
