package heap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/internal/format"
)

// ============================================================================
// Test Type Registry
// ============================================================================

// Test object shapes, registered once per process because the GCInfo table
// never forgets an entry.
//
//	leaf: opaque payload, no references, no finalizer
//	node: two Ref fields at payload words 0 and 1
//	fin:  leaf-shaped, counts finalizations in finalizedCount
var testTypes struct {
	once sync.Once
	leaf gckit.GCInfoIndex
	node gckit.GCInfoIndex
	fin  gckit.GCInfoIndex
}

// finalizedCount tallies fin-type finalizer runs. Tests read and reset it
// through takeFinalized.
var finalizedCount int

func registerTestTypes() {
	testTypes.once.Do(func() {
		gckit.Init()
		testTypes.leaf = gckit.AddGCInfo(gckit.GCInfo{})
		testTypes.node = gckit.AddGCInfo(gckit.GCInfo{
			Trace: func(v gckit.Visitor, obj gckit.Ref) {
				v.Trace(obj.Field(0))
				v.Trace(obj.Field(1))
			},
		})
		testTypes.fin = gckit.AddGCInfo(gckit.GCInfo{
			Finalize: func(obj gckit.Ref) { finalizedCount++ },
		})
	})
}

// takeFinalized returns the finalizer count accumulated since the last call.
func takeFinalized() int {
	n := finalizedCount
	finalizedCount = 0
	return n
}

// ============================================================================
// Heap Construction Utilities
// ============================================================================

// smallTestConfig keeps test heaps quick to sweep.
func smallTestConfig() Config {
	cfg := DefaultConfig()
	cfg.HeapSize = 64 * BlockSize
	return cfg
}

// newTestHeap builds a heap that closes itself when the test ends.
func newTestHeap(t testing.TB, cfg Config) *Heap {
	t.Helper()
	registerTestTypes()
	h := New(cfg)
	t.Cleanup(func() {
		require.NoError(t, h.Close(), "Close should not error")
	})
	return h
}

// newRootedHeap is newTestHeap plus a mutable root table wired in as a
// constraint. Tests append to and truncate the returned slice to control
// liveness.
func newRootedHeap(t testing.TB, cfg Config) (*Heap, *[]gckit.Ref) {
	t.Helper()
	h := newTestHeap(t, cfg)
	roots := &[]gckit.Ref{}
	h.AddConstraint(ConstraintFunc(func(v gckit.Visitor) {
		for _, r := range *roots {
			v.Trace(r)
		}
	}))
	return h, roots
}

// allocNode allocates a two-field node and fails the test on exhaustion.
func allocNode(t testing.TB, h *Heap) gckit.Ref {
	t.Helper()
	ref := h.Allocate(format.HeaderSize+2*8, testTypes.node)
	require.False(t, ref.IsNil(), "node allocation should succeed")
	return ref
}

// allocLeaf allocates an opaque object whose payload holds at least size
// bytes past the header.
func allocLeaf(t testing.TB, h *Heap, size uintptr) gckit.Ref {
	t.Helper()
	ref := h.Allocate(format.HeaderSize+size, testTypes.leaf)
	require.False(t, ref.IsNil(), "leaf allocation should succeed")
	return ref
}
