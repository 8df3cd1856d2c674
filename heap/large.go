package heap

import (
	"sort"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/mmap"
)

// largeSpace gives every object at or above LargeCutoff a private mapping.
// The mapping starts with a LargeMeta record, then the object header, then
// the payload. A directory of header addresses supports ordered walks; the
// region map answers exact-start lookups from conservative scanning.
type largeSpace struct {
	objects []uintptr
	regions map[uintptr]*mmap.Region
	sorted  bool
	mapped  uintptr
}

func newLargeSpace() largeSpace {
	return largeSpace{regions: make(map[uintptr]*mmap.Region), sorted: true}
}

// allocate maps a fresh chunk for a cell of total bytes (header included)
// and returns the header address, or 0 when the mapping fails. Memory
// arrives zeroed from the kernel.
func (ls *largeSpace) allocate(total uintptr, index uint16) uintptr {
	cell := format.AlignGranule(total)
	mapLen := format.AlignUp(format.LargeMetaSize+cell, MapChunkSize)
	region, err := mmap.Map(mapLen)
	if err != nil {
		return 0
	}
	meta := format.LargeMetaAt(region.Base())
	meta.CellSize = cell
	meta.MapLen = mapLen

	addr := region.Base() + format.LargeMetaSize
	*format.At(addr) = format.MakeLarge(index)

	ls.objects = append(ls.objects, addr)
	ls.regions[addr] = region
	ls.sorted = false
	ls.mapped += mapLen
	return addr
}

// contains reports whether addr is the header address of a live large
// object.
func (ls *largeSpace) contains(addr uintptr) bool {
	_, ok := ls.regions[addr]
	return ok
}

// ensureSorted orders the directory for deterministic walks.
func (ls *largeSpace) ensureSorted() {
	if ls.sorted {
		return
	}
	sort.Slice(ls.objects, func(i, j int) bool { return ls.objects[i] < ls.objects[j] })
	ls.sorted = true
}

// sweep releases dead large objects and resets survivor marks, returning
// surviving bytes. fn runs for each dead object before its mapping goes
// away, with the memory still intact.
func (ls *largeSpace) sweep(minor bool, fn func(addr uintptr)) uintptr {
	var live uintptr
	kept := ls.objects[:0]
	for _, addr := range ls.objects {
		hdr := format.At(addr)
		if hdr.Marked() || (minor && hdr.Old()) {
			hdr.ClearMarked()
			hdr.ClearPinned()
			hdr.SetOld()
			live += format.LargeMetaOf(addr).CellSize
			kept = append(kept, addr)
			continue
		}
		fn(addr)
		region := ls.regions[addr]
		ls.mapped -= region.Len()
		delete(ls.regions, addr)
		_ = region.Release()
	}
	ls.objects = kept
	return live
}

// visitDirty runs fn for each old large object whose barrier flag is set,
// clearing the flag.
func (ls *largeSpace) visitDirty(fn func(addr uintptr)) {
	for _, addr := range ls.objects {
		meta := format.LargeMetaOf(addr)
		if !meta.Dirty() {
			continue
		}
		meta.ClearDirty()
		if format.At(addr).Old() {
			fn(addr)
		}
	}
}

// releaseAll unmaps everything. Used by Close.
func (ls *largeSpace) releaseAll() error {
	var firstErr error
	for addr, region := range ls.regions {
		if err := region.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ls.regions, addr)
	}
	ls.objects = nil
	ls.mapped = 0
	return firstErr
}
