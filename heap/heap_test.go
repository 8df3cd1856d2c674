package heap

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// TestNew_AppliesDefaults verifies zero-valued config fields pick up the
// documented defaults.
func TestNew_AppliesDefaults(t *testing.T) {
	registerTestTypes()
	h := New(Config{HeapSize: 16 * BlockSize})
	defer func() { require.NoError(t, h.Close()) }()

	assert.Equal(t, DefaultConfig().HeapGrowthFactor, h.cfg.HeapGrowthFactor)
	assert.Equal(t, DefaultConfig().SizeClassProgression, h.cfg.SizeClassProgression)
	assert.Equal(t, uintptr(16*BlockSize), h.cfg.HeapSize)
	assert.Zero(t, h.space.base%BlockSize, "block space must be block-aligned")
}

// TestNew_RejectsBadConfig verifies configuration violations abort instead
// of limping along.
func TestNew_RejectsBadConfig(t *testing.T) {
	registerTestTypes()

	bad := []Config{
		{HeapSize: BlockSize},                                 // reservation too small
		{HeapSize: 16 * BlockSize, HeapGrowthFactor: 0.5},     // shrinking growth
		{HeapSize: 16 * BlockSize, HeapGrowthThreshold: 1.5},  // threshold past 1
		{HeapSize: 16 * BlockSize, MaxEdenSize: 1024},         // cap below floor
		{HeapSize: 16 * BlockSize, MaxHeapSize: BlockSize},    // cap below floor
		{HeapSize: 16 * BlockSize, SizeClassProgression: 1.0}, // flat progression
		{HeapSize: 16 * BlockSize, MaxHeapSize: 8 << 20, MaxEdenSize: 16 << 20}, // eden past heap cap
	}
	for _, cfg := range bad {
		require.Panics(t, func() { _ = New(cfg) }, "config %+v should panic", cfg)
	}
}

// TestClose_Idempotent verifies double close is a quiet no-op and later
// operations fail loudly.
func TestClose_Idempotent(t *testing.T) {
	registerTestTypes()
	h := New(Config{HeapSize: 16 * BlockSize})

	allocLeaf(t, h, 24)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "second close is a no-op")

	assert.Panics(t, func() { h.Allocate(8, testTypes.leaf) })
	assert.Panics(t, func() { h.Collect() })
	assert.ErrorIs(t, h.CheckInvariants(), ErrClosed)
}

// TestCheckInvariants_CleanHeap runs the validator over a heap that has
// seen allocation, death, and reuse in every space.
func TestCheckInvariants_CleanHeap(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	for i := range 300 {
		ref := allocLeaf(t, h, uintptr(8+i%500))
		if i%3 == 0 {
			*roots = append(*roots, ref)
		}
	}
	*roots = append(*roots, allocLeaf(t, h, 2*LargeCutoff))
	require.NoError(t, h.CheckInvariants())

	h.Collect()
	require.NoError(t, h.CheckInvariants())

	for range 100 {
		allocLeaf(t, h, 64)
	}
	require.NoError(t, h.CheckInvariants())
}

// TestCheckInvariants_DetectsCorruption verifies the validator actually
// notices a trashed header.
func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	ref := allocLeaf(t, h, 24)
	*roots = append(*roots, ref)

	hdr := format.At(uintptr(ref))
	hdr.TestAndSetMarked() // stray mark outside a cycle
	err := h.CheckInvariants()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.Contains(t, err.Error(), "marked")
	hdr.ClearMarked()
	require.NoError(t, h.CheckInvariants())
}

// TestForEachObject_VisitsEverything verifies the walker sees block and
// large objects exactly once.
func TestForEachObject_VisitsEverything(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	want := map[gckit.Ref]bool{}
	for range 50 {
		ref := allocLeaf(t, h, 24)
		*roots = append(*roots, ref)
		want[ref] = true
	}
	big := allocLeaf(t, h, 3*LargeCutoff)
	*roots = append(*roots, big)
	want[big] = true

	got := map[gckit.Ref]int{}
	h.ForEachObject(func(obj gckit.Ref) bool {
		got[obj]++
		return true
	})
	require.Len(t, got, len(want))
	for ref, n := range got {
		assert.True(t, want[ref], "walker reported unknown object %#x", uintptr(ref))
		assert.Equal(t, 1, n, "object %#x visited more than once", uintptr(ref))
	}

	// Early stop.
	seen := 0
	h.ForEachObject(func(obj gckit.Ref) bool {
		seen++
		return false
	})
	assert.Equal(t, 1, seen)
}

// TestHeap_ObjectAccessors ties Ref metadata to heap placement.
func TestHeap_ObjectAccessors(t *testing.T) {
	h := newTestHeap(t, smallTestConfig())

	small := allocLeaf(t, h, 24)
	assert.Equal(t, testTypes.leaf, small.GCInfoIndex())
	assert.Equal(t, uintptr(32), small.Size())
	assert.Equal(t, uintptr(24), small.PayloadSize())
	assert.Len(t, small.Bytes(), 24)

	node := allocNode(t, h)
	node.SetField(1, small)
	assert.Equal(t, small, node.Field(1))
	assert.True(t, node.Field(0).IsNil())
}
