package heap

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
)

// rangeOf returns the address span of a word slice for AddRootRange.
func rangeOf(words []uintptr) (from, to uintptr) {
	from = uintptr(unsafe.Pointer(unsafe.SliceData(words)))
	return from, from + uintptr(len(words))*unsafe.Sizeof(uintptr(0))
}

// TestConservative_RangeKeepsObjectAlive verifies a raw address sitting in
// a registered range roots the object.
func TestConservative_RangeKeepsObjectAlive(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	slots := make([]uintptr, 8)
	h.AddRootRange(rangeOf(slots))

	ref := allocLeaf(t, h, 24)
	doomed := allocLeaf(t, h, 24)
	slots[3] = uintptr(ref)

	h.Collect()
	assert.True(t, h.isObjectStart(uintptr(ref)), "address found in range must survive")
	assert.False(t, h.isObjectStart(uintptr(doomed)), "addresses absent from the range die")
	assert.NotZero(t, h.Statistics().ConservativeRoots)
	runtime.KeepAlive(slots)
}

// TestConservative_InteriorPointersDoNotRoot verifies resolution demands
// exact object starts.
func TestConservative_InteriorPointersDoNotRoot(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	slots := make([]uintptr, 4)
	h.AddRootRange(rangeOf(slots))

	ref := allocLeaf(t, h, 56)
	slots[0] = uintptr(ref) + format.HeaderSize // payload, not header
	slots[1] = uintptr(ref) + 16

	h.Collect()
	assert.False(t, h.isObjectStart(uintptr(ref)),
		"interior addresses must not resurrect an object")
	runtime.KeepAlive(slots)
}

// TestConservative_GarbageWordsAreHarmless verifies the scanner shrugs at
// integers that merely look like pointers.
func TestConservative_GarbageWordsAreHarmless(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	ref := allocLeaf(t, h, 24)
	*roots = append(*roots, ref)

	slots := []uintptr{0, 1, 0xdeadbeef, ^uintptr(0), uintptr(ref) + 1, h.space.base - 8}
	h.AddRootRange(rangeOf(slots))

	h.Collect()
	assert.True(t, h.isObjectStart(uintptr(ref)))
	require.NoError(t, h.CheckInvariants())
	runtime.KeepAlive(slots)
}

// TestConservative_FindsLargeObjects verifies exact-start resolution works
// for the large space directory too.
func TestConservative_FindsLargeObjects(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	slots := make([]uintptr, 2)
	h.AddRootRange(rangeOf(slots))

	big := allocLeaf(t, h, 2*LargeCutoff)
	slots[0] = uintptr(big)

	h.Collect()
	assert.True(t, h.large.contains(uintptr(big)), "large object rooted from range must survive")

	slots[0] = uintptr(big) + 8 // interior
	h.Collect()
	assert.False(t, h.large.contains(uintptr(big)))
	runtime.KeepAlive(slots)
}

// TestConservative_PinLastsOneCycle verifies pins from conservative hits
// are dropped by the sweep that follows.
func TestConservative_PinLastsOneCycle(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	slots := make([]uintptr, 1)
	h.AddRootRange(rangeOf(slots))

	ref := allocLeaf(t, h, 24)
	slots[0] = uintptr(ref)

	h.Collect()
	assert.False(t, format.At(uintptr(ref)).Pinned(), "sweep releases cycle pins")
	assert.Equal(t, uint64(1), h.Statistics().ConservativeRoots)
	runtime.KeepAlive(slots)
}

// TestConservative_UnalignedRangeEndsClamp verifies odd range bounds cannot
// push the scanner past the registered words.
func TestConservative_UnalignedRangeEndsClamp(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())
	h.AddCoreConstraints()

	slots := make([]uintptr, 2)
	from, to := rangeOf(slots)
	h.AddRootRange(from+3, to-3) // degenerate but legal registration

	ref := allocLeaf(t, h, 24)
	slots[0] = uintptr(ref) // straddles the clipped start, must not be read

	var v markVisitor
	v.h = h
	v.TraceConservatively(from+3, to-3)
	assert.Empty(t, v.work, "no aligned word in the clipped range holds the address")

	_ = ref
	runtime.KeepAlive(slots)
}
