package heap

import (
	"unsafe"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// markVisitor is the gckit.Visitor a collection cycle hands to constraints
// and trace callbacks. It filters candidates down to live object starts,
// sets mark bits, and drains the resulting worklist depth-first.
type markVisitor struct {
	h     *Heap
	minor bool
	work  []gckit.Ref

	markedObjects uint64
	markedBytes   uintptr
}

var _ gckit.Visitor = (*markVisitor)(nil)

// Trace marks the object at ref and queues it for field tracing. Values
// that are not the address of a live object are ignored.
func (v *markVisitor) Trace(ref gckit.Ref) {
	if ref.IsNil() || !v.h.isObjectStart(uintptr(ref)) {
		return
	}
	v.push(uintptr(ref), false)
}

// TraceConservatively treats every pointer-aligned word in [from, to) as a
// potential object address. Hits are pinned for the cycle.
func (v *markVisitor) TraceConservatively(from, to uintptr) {
	for p := format.AlignUp(from, ptrSize); p+ptrSize <= to; p += ptrSize {
		candidate := *(*uintptr)(unsafe.Pointer(p))
		if candidate == 0 || !v.h.isObjectStart(candidate) {
			continue
		}
		v.push(candidate, true)
	}
}

// push marks addr if it still needs marking this cycle. Minor cycles treat
// the old generation as live and stop there; card scanning covers its
// young references.
func (v *markVisitor) push(addr uintptr, pin bool) {
	hdr := format.At(addr)
	if v.minor && hdr.Old() {
		return
	}
	if pin && !hdr.Pinned() {
		hdr.SetPinned()
		v.h.pinnedRoots++
	}
	if hdr.TestAndSetMarked() {
		return
	}
	v.markedObjects++
	v.markedBytes += gckit.Ref(addr).Size()
	v.work = append(v.work, gckit.Ref(addr))
}

// drain runs trace callbacks until the worklist is empty.
func (v *markVisitor) drain() {
	for len(v.work) > 0 {
		obj := v.work[len(v.work)-1]
		v.work = v.work[:len(v.work)-1]
		if t := gckit.GetGCInfo(obj.GCInfoIndex()).Trace; t != nil {
			t(v, obj)
		}
	}
}

// traceObject runs the object's trace callback against the visitor without
// marking the object itself. Card scanning uses it to walk old objects for
// young references.
func (v *markVisitor) traceObject(addr uintptr) {
	obj := gckit.Ref(addr)
	if t := gckit.GetGCInfo(obj.GCInfoIndex()).Trace; t != nil {
		t(v, obj)
	}
}

// scanCards seeds a minor cycle from the remembered set: dirty cards over
// the block space and dirty flags on large objects. Cards are cleared as
// they are visited.
func (h *Heap) scanCards(v *markVisitor) {
	h.cards.VisitDirty(func(start, end uintptr) {
		scanFrom := start
		// An old object can straddle the card boundary; back up to the
		// last start below the card, bounded by its block.
		blockBase := h.space.blockStart(h.space.blockIndex(start))
		if prev := h.live.FindBefore(start, blockBase); prev != 0 {
			if prev+gckit.Ref(prev).Size() > start {
				scanFrom = prev
			}
		}
		h.live.VisitRange(scanFrom, end, func(addr uintptr) bool {
			if format.At(addr).Old() {
				v.traceObject(addr)
			}
			return true
		})
	})
	h.cards.ClearAll()
	h.large.visitDirty(v.traceObject)
}
