package heap

import (
	"math/bits"

	"github.com/joshuapare/gckit/internal/format"
)

// bitmap records object start addresses over the block space, one bit per
// 8-byte granule. Conservative scanning and card scanning resolve candidate
// addresses through it, so Test tolerates arbitrary garbage input.
type bitmap struct {
	base  uintptr
	limit uintptr
	words []uint64
}

func newBitmap(base, span uintptr) *bitmap {
	return &bitmap{
		base:  base,
		limit: base + span,
		words: make([]uint64, (span/format.Granularity+63)/64),
	}
}

// Set records an object start. addr must be granule-aligned and in range.
func (bm *bitmap) Set(addr uintptr) {
	g := (addr - bm.base) / format.Granularity
	bm.words[g>>6] |= 1 << (g & 63)
}

// Clear removes an object start.
func (bm *bitmap) Clear(addr uintptr) {
	g := (addr - bm.base) / format.Granularity
	bm.words[g>>6] &^= 1 << (g & 63)
}

// Test reports whether addr is a recorded object start. Unaligned or
// out-of-range addresses report false.
func (bm *bitmap) Test(addr uintptr) bool {
	if addr < bm.base || addr >= bm.limit || addr&(format.Granularity-1) != 0 {
		return false
	}
	g := (addr - bm.base) / format.Granularity
	return bm.words[g>>6]&(1<<(g&63)) != 0
}

// FindBefore returns the last object start strictly below addr and at or
// above floor, or zero when there is none. Used to locate an object that
// straddles a card boundary.
func (bm *bitmap) FindBefore(addr, floor uintptr) uintptr {
	if floor < bm.base {
		floor = bm.base
	}
	if addr <= floor {
		return 0
	}
	if addr > bm.limit {
		addr = bm.limit
	}
	g := (addr - bm.base) / format.Granularity
	fg := (floor - bm.base) / format.Granularity

	w := int(g >> 6)
	rem := g & 63
	if w >= len(bm.words) {
		w = len(bm.words) - 1
		rem = 64
	}
	for ; w >= 0; w-- {
		cur := bm.words[w]
		if rem < 64 {
			cur &= (1 << rem) - 1
		}
		rem = 64
		if cur == 0 {
			if uintptr(w)<<6 <= fg {
				return 0
			}
			continue
		}
		idx := uintptr(w)<<6 + uintptr(bits.Len64(cur)-1)
		if idx < fg {
			return 0
		}
		return bm.base + idx*format.Granularity
	}
	return 0
}

// VisitRange calls fn for every object start in [lo, hi) in ascending
// address order. fn returns false to stop; VisitRange reports whether the
// walk ran to completion.
func (bm *bitmap) VisitRange(lo, hi uintptr, fn func(addr uintptr) bool) bool {
	if lo < bm.base {
		lo = bm.base
	}
	if hi > bm.limit {
		hi = bm.limit
	}
	if hi <= lo {
		return true
	}
	first := (lo - bm.base) / format.Granularity
	last := (hi - 1 - bm.base) / format.Granularity
	for w := first >> 6; w <= last>>6; w++ {
		cur := bm.words[w]
		if cur == 0 {
			continue
		}
		if w == first>>6 {
			cur &= ^uint64(0) << (first & 63)
		}
		if w == last>>6 && last&63 != 63 {
			cur &= (1 << (last&63 + 1)) - 1
		}
		for cur != 0 {
			b := uintptr(bits.TrailingZeros64(cur))
			cur &= cur - 1
			if !fn(bm.base + (w<<6+b)*format.Granularity) {
				return false
			}
		}
	}
	return true
}
