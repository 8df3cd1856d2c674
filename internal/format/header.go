package format

import "unsafe"

// Header is the fixed prefix stored immediately before every object payload.
//
// Layout (little-endian on every supported target):
//
//	Offset  Size  Description
//	0x00    4     Reserved. Keeps the header one machine word and the payload
//	              granule-aligned.
//	0x04    2     encodedLow: bits 0-13 GCInfo index, bit 14 pinned,
//	              bit 15 old generation.
//	0x06    2     encodedHigh: bits 0-13 object size in granules (zero for
//	              large objects), bit 14 free, bit 15 marked.
type Header struct {
	_           uint32
	encodedLow  uint16
	encodedHigh uint16
}

// At reinterprets the memory at addr as a Header. addr must be the start of
// an object inside heap-owned memory; this is the single point where raw
// addresses become header views.
func At(addr uintptr) *Header {
	return (*Header)(unsafe.Pointer(addr)) //nolint:govet // heap memory lives outside the Go heap
}

// Make composes a header value for a freshly allocated object of size bytes
// (granule-rounded, header included) and the given GCInfo index. Objects
// start young, unmarked, and unpinned.
func Make(index uint16, size uintptr) Header {
	return Header{
		encodedLow:  index & IndexMask,
		encodedHigh: uint16((size / Granularity) & SizeMask),
	}
}

// MakeLarge composes a header for a large allocation. The size field stays
// zero; readers fall through to the LargeMeta record.
func MakeLarge(index uint16) Header {
	return Header{encodedLow: index & IndexMask}
}

// Index returns the GCInfo index recorded at allocation time.
func (h *Header) Index() uint16 {
	return h.encodedLow & IndexMask
}

// Size returns the object size in bytes (header included), or zero for large
// objects, which record their size in the LargeMeta instead.
func (h *Header) Size() uintptr {
	return uintptr(h.encodedHigh&SizeMask) * Granularity
}

// Marked reports current-cycle reachability.
func (h *Header) Marked() bool {
	return h.encodedHigh&MarkBit != 0
}

// TestAndSetMarked sets the mark bit and reports whether it was already set.
// The single mutator model makes a plain read-modify-write sufficient.
func (h *Header) TestAndSetMarked() bool {
	if h.encodedHigh&MarkBit != 0 {
		return true
	}
	h.encodedHigh |= MarkBit
	return false
}

// ClearMarked resets reachability for the next cycle.
func (h *Header) ClearMarked() {
	h.encodedHigh &^= MarkBit
}

// Free reports whether sweep returned this object's memory to a hole.
func (h *Header) Free() bool {
	return h.encodedHigh&FreeBit != 0
}

// SetFree flags the object as swept. The mark bit is cleared alongside so a
// stale header found in a hole can never read as reachable.
func (h *Header) SetFree() {
	h.encodedHigh = (h.encodedHigh | FreeBit) &^ MarkBit
}

// Old reports whether the object was promoted to the old generation.
func (h *Header) Old() bool {
	return h.encodedLow&OldBit != 0
}

// SetOld promotes the object in place.
func (h *Header) SetOld() {
	h.encodedLow |= OldBit
}

// Pinned reports whether the object's address must not move.
func (h *Header) Pinned() bool {
	return h.encodedLow&PinnedBit != 0
}

// SetPinned pins the object for the current cycle.
func (h *Header) SetPinned() {
	h.encodedLow |= PinnedBit
}

// ClearPinned releases a pin set during conservative scanning.
func (h *Header) ClearPinned() {
	h.encodedLow &^= PinnedBit
}
