package heap

import (
	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// WriteBarrier records that obj may now point at a younger object. Call it
// after every pointer store into obj. Without the record a minor collection
// cannot see old-to-young edges and will reclaim live objects.
//
// The barrier is a no-op on non-generational heaps and for young objects,
// so callers may invoke it unconditionally.
func (h *Heap) WriteBarrier(obj gckit.Ref) {
	if h.cards == nil || obj.IsNil() {
		return
	}
	addr := uintptr(obj)
	if !format.At(addr).Old() {
		return
	}
	if h.space.contains(addr) {
		h.cards.MarkDirty(addr)
		return
	}
	if h.large.contains(addr) {
		format.LargeMetaOf(addr).SetDirty()
	}
}
