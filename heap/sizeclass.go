package heap

import (
	"fmt"
	"os"
	"sort"

	"github.com/joshuapare/gckit/internal/format"
)

// sizeClassTable holds the allocation sizes the block space hands out.
// Classes run in two phases: exact sizeStep multiples up to preciseCutoff,
// then geometric growth by the configured progression, snapped to sizeStep.
// Each geometric class is nudged up to the largest size that still tiles a
// block with the same cell count, which trims the tail waste per block.
type sizeClassTable struct {
	classes []uintptr
}

func newSizeClassTable(progression float64, dump bool) *sizeClassTable {
	t := &sizeClassTable{classes: make([]uintptr, 0, 32)}
	add := func(size uintptr) {
		if n := len(t.classes); n > 0 && t.classes[n-1] >= size {
			return
		}
		if dump {
			cells := uintptr(BlockSize) / size
			fmt.Fprintf(os.Stderr, "[gc] size class %5d: %4d cells per block, %5d bytes tail\n",
				size, cells, uintptr(BlockSize)-cells*size)
		}
		t.classes = append(t.classes, size)
	}

	for size := uintptr(sizeStep); size <= preciseCutoff; size += sizeStep {
		add(size)
	}
	for approx := preciseCutoff * progression; approx < LargeCutoff; approx *= progression {
		size := format.AlignUp(uintptr(approx), sizeStep)
		cells := uintptr(BlockSize) / size
		better := format.AlignDown(uintptr(BlockSize)/cells, sizeStep)
		// Take the fatter cell when it keeps the cell count and stays
		// within one progression step of the ideal size.
		if better > size && float64(better) < approx*progression {
			size = better
		}
		add(size)
	}
	return t
}

// sizeFor rounds a granule-aligned request up to its size class. Requests
// between the last class and LargeCutoff keep their aligned size.
func (t *sizeClassTable) sizeFor(n uintptr) uintptr {
	i := sort.Search(len(t.classes), func(i int) bool { return t.classes[i] >= n })
	if i == len(t.classes) {
		return format.AlignGranule(n)
	}
	return t.classes[i]
}

// count reports how many classes the table holds.
func (t *sizeClassTable) count() int {
	return len(t.classes)
}

// SizeClasses returns the cell sizes a heap built with the given progression
// hands out, ascending. Progression must exceed 1.0, as in Config. Tooling
// uses this to inspect the table without reserving a heap.
func SizeClasses(progression float64) []uintptr {
	if progression <= 1.0 {
		panic(fmt.Sprintf("gc: size class progression %v must exceed 1.0", progression))
	}
	t := newSizeClassTable(progression, false)
	return append([]uintptr(nil), t.classes...)
}
