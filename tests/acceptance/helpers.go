// Package acceptance exercises the collector strictly through its public
// API, the way an embedder sees it. Liveness is observed indirectly, with
// weak references, finalizer counts, and statistics; nothing here reaches
// into heap internals.
package acceptance

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/heap"
)

// Object shapes shared by the suite, registered once per process because
// GCInfo entries are permanent.
//
//	leaf: opaque payload
//	pair: two Ref fields at payload words 0 and 1
//	fin:  leaf-shaped, bumps finalizedCount on death
var types struct {
	once sync.Once
	leaf gckit.GCInfoIndex
	pair gckit.GCInfoIndex
	fin  gckit.GCInfoIndex
}

var finalizedCount int

func registerTypes() {
	types.once.Do(func() {
		gckit.Init()
		types.leaf = gckit.AddGCInfo(gckit.GCInfo{})
		types.pair = gckit.AddGCInfo(gckit.GCInfo{
			Trace: func(v gckit.Visitor, obj gckit.Ref) {
				v.Trace(obj.Field(0))
				v.Trace(obj.Field(1))
			},
		})
		types.fin = gckit.AddGCInfo(gckit.GCInfo{
			Finalize: func(obj gckit.Ref) { finalizedCount++ },
		})
	})
}

// takeFinalized returns finalizer runs since the last call.
func takeFinalized() int {
	n := finalizedCount
	finalizedCount = 0
	return n
}

// smallConfig keeps suite heaps quick to collect.
func smallConfig() heap.Config {
	cfg := heap.DefaultConfig()
	cfg.HeapSize = 64 * heap.BlockSize
	return cfg
}

// testHeap bundles a heap with the root table its constraint traces. Tests
// control liveness by editing roots.
type testHeap struct {
	*heap.Heap
	roots []gckit.Ref
}

func newHeap(t testing.TB, cfg heap.Config) *testHeap {
	t.Helper()
	registerTypes()

	th := &testHeap{Heap: heap.New(cfg)}
	th.AddConstraint(heap.ConstraintFunc(func(v gckit.Visitor) {
		for _, r := range th.roots {
			v.Trace(r)
		}
	}))
	t.Cleanup(func() {
		require.NoError(t, th.Close(), "heap should close cleanly")
	})
	return th
}

func (th *testHeap) root(r gckit.Ref) {
	th.roots = append(th.roots, r)
}

func (th *testHeap) dropRoots() {
	th.roots = th.roots[:0]
}

// allocPair allocates a two-field pair cell.
func (th *testHeap) allocPair(t testing.TB) gckit.Ref {
	t.Helper()
	ref := th.Allocate(8+2*8, types.pair)
	require.False(t, ref.IsNil(), "pair allocation should succeed")
	return ref
}

// allocLeaf allocates an opaque cell with payload bytes of usable space.
func (th *testHeap) allocLeaf(t testing.TB, payload uintptr) gckit.Ref {
	t.Helper()
	ref := th.Allocate(8+payload, types.leaf)
	require.False(t, ref.IsNil(), "leaf allocation should succeed")
	return ref
}

// watch returns a weak reference: the suite's only window into whether the
// collector kept an object.
func (th *testHeap) watch(ref gckit.Ref) *heap.WeakRef {
	return th.AllocateWeak(ref)
}
