package format

import "unsafe"

// LargeMeta is the record placed at the start of every large-object mapping,
// immediately ahead of the object header.
//
// Mapping layout:
//
//	Offset                Size  Description
//	0x00                  8     Cell size in bytes (header + payload,
//	                            granule-rounded). This is the size gc_size
//	                            reports for a large object.
//	0x08                  8     Mapping length in bytes.
//	0x10                  8     Flags; bit 0 set when a pointer field was
//	                            written since the last minor collection.
//	0x18                  8     Reserved; keeps the object header at a
//	                            32-byte offset.
//	LargeMetaSize         8     Object header.
//	LargeMetaSize+8       ...   Payload.
type LargeMeta struct {
	CellSize uintptr
	MapLen   uintptr
	flags    uintptr
	_        uintptr
}

// LargeMetaSize is the distance from the mapping base to the object header.
const LargeMetaSize = unsafe.Sizeof(LargeMeta{})

// largeDirtyFlag marks an old large object written since the last minor
// collection; the moral equivalent of a dirty card for memory that lives
// outside the card-covered reservation.
const largeDirtyFlag = 1 << 0

// LargeMetaOf returns the metadata record for the large object whose header
// sits at obj. Callers must know obj is large (header size field zero).
func LargeMetaOf(obj uintptr) *LargeMeta {
	return (*LargeMeta)(unsafe.Pointer(obj - LargeMetaSize)) //nolint:govet // heap memory lives outside the Go heap
}

// LargeMetaAt reinterprets the memory at the mapping base as a LargeMeta.
func LargeMetaAt(base uintptr) *LargeMeta {
	return (*LargeMeta)(unsafe.Pointer(base)) //nolint:govet // heap memory lives outside the Go heap
}

// Dirty reports whether the object was written since the last minor cycle.
func (m *LargeMeta) Dirty() bool {
	return m.flags&largeDirtyFlag != 0
}

// SetDirty records a pointer store into the object.
func (m *LargeMeta) SetDirty() {
	m.flags |= largeDirtyFlag
}

// ClearDirty resets the write record after a minor cycle scanned the object.
func (m *LargeMeta) ClearDirty() {
	m.flags &^= largeDirtyFlag
}
