package gckit

import (
	"unsafe"

	"github.com/joshuapare/gckit/internal/format"
)

// Ref is a reference to a heap object: the address of its header. The zero
// Ref is "no object" and is what failed allocations and cleared weak
// references yield.
//
// Refs are plain words. Storing one into an object field, passing it
// around, or keeping it in embedder-owned memory never affects liveness by
// itself; only registered constraints, conservative root ranges, and traced
// fields do.
type Ref uintptr

// IsNil reports whether r refers to no object.
func (r Ref) IsNil() bool {
	return r == 0
}

// Payload returns the address of the first payload byte.
func (r Ref) Payload() uintptr {
	return uintptr(r) + format.HeaderSize
}

// Size returns the object's total size in bytes, header included. For large
// objects the header records zero and the size is read from the allocation
// metadata. This is the gc_size of the public contract.
func (r Ref) Size() uintptr {
	if s := format.At(uintptr(r)).Size(); s != 0 {
		return s
	}
	return format.LargeMetaOf(uintptr(r)).CellSize
}

// PayloadSize returns the number of usable payload bytes.
func (r Ref) PayloadSize() uintptr {
	return r.Size() - format.HeaderSize
}

// GCInfoIndex returns the type index recorded when the object was
// allocated.
func (r Ref) GCInfoIndex() GCInfoIndex {
	return GCInfoIndex(format.At(uintptr(r)).Index())
}

// Bytes returns the payload as a byte slice aliasing heap memory. The slice
// stays valid exactly as long as the object does.
func (r Ref) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(r.Payload())), r.PayloadSize())
}

// Field reads the i-th pointer-sized payload word as a Ref.
func (r Ref) Field(i int) Ref {
	return *r.fieldPtr(i)
}

// SetField stores v into the i-th pointer-sized payload word. Callers in
// generational heaps must follow stores with Heap.WriteBarrier.
func (r Ref) SetField(i int, v Ref) {
	*r.fieldPtr(i) = v
}

func (r Ref) fieldPtr(i int) *Ref {
	return (*Ref)(unsafe.Pointer(r.Payload() + uintptr(i)*unsafe.Sizeof(r))) //nolint:govet // heap memory lives outside the Go heap
}
