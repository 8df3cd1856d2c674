package heap

import (
	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// WeakRef observes an object without keeping it alive. Upgrade returns the
// referent until a collection proves it unreachable, and the nil Ref from
// then on. The slot never resurrects.
type WeakRef struct {
	target gckit.Ref
}

// AllocateWeak creates a weak reference to target. A nil target yields a
// permanently cleared reference.
func (h *Heap) AllocateWeak(target gckit.Ref) *WeakRef {
	w := &WeakRef{target: target}
	if !target.IsNil() {
		h.weak = append(h.weak, w)
	}
	return w
}

// Upgrade returns the referent, or the nil Ref once it has been collected.
func (w *WeakRef) Upgrade() gckit.Ref {
	if w == nil {
		return 0
	}
	return w.target
}

// sweepWeak clears weak references whose referents die this cycle and
// prunes cleared slots from the registry. Runs after marking, before any
// memory is reclaimed, so referent headers are still readable.
func (h *Heap) sweepWeak(minor bool) {
	kept := h.weak[:0]
	for _, w := range h.weak {
		if w.target.IsNil() {
			continue
		}
		hdr := format.At(uintptr(w.target))
		if hdr.Marked() || (minor && hdr.Old()) {
			kept = append(kept, w)
			continue
		}
		w.target = 0
		h.weakCleared++
	}
	for i := len(kept); i < len(h.weak); i++ {
		h.weak[i] = nil
	}
	h.weak = kept
}
