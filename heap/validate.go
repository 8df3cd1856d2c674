package heap

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// CheckInvariants walks the whole heap verifying structural soundness:
// header encodings, bitmap and line-mark agreement, block classification,
// and large space bookkeeping. Cost is proportional to committed memory, so
// it is meant for tests and debugging, not steady-state use.
func (h *Heap) CheckInvariants() error {
	if h.closed {
		return ErrClosed
	}
	if h.phase != phaseIdle {
		return ErrCollecting
	}
	if err := h.checkBlocks(); err != nil {
		return err
	}
	if err := h.checkLarge(); err != nil {
		return err
	}
	if h.edenBudget < minEdenBudget {
		return errors.Wrapf(ErrCorrupt, "eden budget %d below floor %d", h.edenBudget, minEdenBudget)
	}
	return nil
}

func (h *Heap) checkBlocks() error {
	var err error
	for i := range h.space.meta {
		m := &h.space.meta[i]
		base := h.space.blockStart(i)

		if m.state == blockFree {
			empty := h.live.VisitRange(base, base+BlockSize, func(addr uintptr) bool {
				err = errors.Wrapf(ErrCorrupt, "free block %d holds object bit at %#x", i, addr)
				return false
			})
			if !empty {
				return err
			}
			continue
		}

		swept := m.state == blockRecyclable || m.state == blockFull
		prevEnd := base
		ok := h.live.VisitRange(base, base+BlockSize, func(addr uintptr) bool {
			hdr := format.At(addr)
			size := hdr.Size()
			switch {
			case size < MinObjectSize || size&(format.Granularity-1) != 0:
				err = errors.Wrapf(ErrCorrupt, "object %#x in block %d has bad size %d", addr, i, size)
			case addr < prevEnd:
				err = errors.Wrapf(ErrCorrupt, "object %#x overlaps previous object in block %d", addr, i)
			case addr+size > base+BlockSize:
				err = errors.Wrapf(ErrCorrupt, "object %#x of %d bytes crosses block %d boundary", addr, size, i)
			case hdr.Marked():
				err = errors.Wrapf(ErrCorrupt, "object %#x still marked outside a cycle", addr)
			case hdr.Free():
				err = errors.Wrapf(ErrCorrupt, "object %#x recorded live but flagged free", addr)
			case !gckit.IsValidIndex(gckit.GCInfoIndex(hdr.Index())):
				err = errors.Wrapf(ErrCorrupt, "object %#x carries unregistered type index %d", addr, hdr.Index())
			}
			if err != nil {
				return false
			}
			if swept {
				for l := (addr - base) / LineSize; l <= (addr+size-1-base)/LineSize; l++ {
					if m.lines[l] == 0 {
						err = errors.Wrapf(ErrCorrupt, "object %#x spans unmarked line %d of block %d", addr, l, i)
						return false
					}
				}
			}
			prevEnd = addr + size
			return true
		})
		if !ok {
			return err
		}

		if swept {
			if got, want := m.holes, countHoles(m); got != want {
				return errors.Wrapf(ErrCorrupt, "block %d records %d holes, lines say %d", i, got, want)
			}
			if m.state == blockRecyclable && m.holes == 0 {
				return errors.Wrapf(ErrCorrupt, "recyclable block %d has no holes", i)
			}
			if m.state == blockFull && m.holes != 0 {
				return errors.Wrapf(ErrCorrupt, "full block %d has %d holes", i, m.holes)
			}
		}
	}
	return nil
}

func (h *Heap) checkLarge() error {
	if len(h.large.objects) != len(h.large.regions) {
		return errors.Wrapf(ErrCorrupt, "large directory has %d entries, region map %d",
			len(h.large.objects), len(h.large.regions))
	}
	for _, addr := range h.large.objects {
		region, ok := h.large.regions[addr]
		if !ok {
			return errors.Wrapf(ErrCorrupt, "large object %#x missing from region map", addr)
		}
		hdr := format.At(addr)
		if hdr.Size() != 0 {
			return errors.Wrapf(ErrCorrupt, "large object %#x encodes inline size %d", addr, hdr.Size())
		}
		if hdr.Marked() {
			return errors.Wrapf(ErrCorrupt, "large object %#x still marked outside a cycle", addr)
		}
		if !gckit.IsValidIndex(gckit.GCInfoIndex(hdr.Index())) {
			return errors.Wrapf(ErrCorrupt, "large object %#x carries unregistered type index %d", addr, hdr.Index())
		}
		meta := format.LargeMetaOf(addr)
		switch {
		case meta.CellSize < MinObjectSize || meta.CellSize&(format.Granularity-1) != 0:
			return errors.Wrapf(ErrCorrupt, "large object %#x has bad cell size %d", addr, meta.CellSize)
		case meta.MapLen%MapChunkSize != 0:
			return errors.Wrapf(ErrCorrupt, "large object %#x mapping %d not chunk aligned", addr, meta.MapLen)
		case meta.MapLen < format.LargeMetaSize+meta.CellSize:
			return errors.Wrapf(ErrCorrupt, "large object %#x mapping %d too small for cell %d",
				addr, meta.MapLen, meta.CellSize)
		case meta.MapLen != region.Len():
			return errors.Wrapf(ErrCorrupt, "large object %#x mapping length %d disagrees with region %d",
				addr, meta.MapLen, region.Len())
		}
	}
	return nil
}
