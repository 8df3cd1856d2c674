package heap

import (
	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// sweepBlocks walks every in-use block, finalizes and unrecords the dead,
// rebuilds line occupancy from survivors, and reclassifies each block as
// recyclable, full, or free. Survivors are promoted to the old generation.
// Returns surviving bytes.
func (h *Heap) sweepBlocks(minor bool) uintptr {
	var live uintptr
	h.space.recyclable = h.space.recyclable[:0]

	for i := range h.space.meta {
		m := &h.space.meta[i]
		if m.state == blockFree {
			continue
		}
		base := h.space.blockStart(i)
		clear(m.lines[:])
		survivors := 0

		h.live.VisitRange(base, base+BlockSize, func(addr uintptr) bool {
			hdr := format.At(addr)
			size := hdr.Size()
			if hdr.Marked() || (minor && hdr.Old()) {
				hdr.ClearMarked()
				hdr.ClearPinned()
				hdr.SetOld()
				h.space.markLines(m, base, addr, size)
				survivors++
				live += size
				return true
			}
			h.finalize(gckit.Ref(addr))
			h.live.Clear(addr)
			hdr.SetFree()
			h.objectsReclaimed++
			return true
		})

		if survivors == 0 {
			h.space.release(i)
			continue
		}
		m.holes = countHoles(m)
		if m.holes == 0 {
			m.state = blockFull
		} else {
			m.state = blockRecyclable
			h.space.recyclable = append(h.space.recyclable, i)
		}
	}
	return live
}

// sweepLarge releases dead large objects after finalizing them.
func (h *Heap) sweepLarge(minor bool) uintptr {
	return h.large.sweep(minor, func(addr uintptr) {
		h.finalize(gckit.Ref(addr))
		h.objectsReclaimed++
	})
}

// finalize runs the object's finalizer, if any, with the memory still
// intact. Each object is finalized at most once because sweep reclaims it
// in the same pass.
func (h *Heap) finalize(obj gckit.Ref) {
	if f := gckit.GetGCInfo(obj.GCInfoIndex()).Finalize; f != nil {
		f(obj)
	}
}
