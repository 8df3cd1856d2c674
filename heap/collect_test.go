package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit"
)

// TestCollect_ReclaimsUnreachable walks the basic death path: allocate,
// unroot, collect, and watch the cell come back at the same address.
func TestCollect_ReclaimsUnreachable(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	ref := allocLeaf(t, h, 56) // 64-byte cell
	*roots = append(*roots, ref)
	h.Collect()
	require.True(t, h.isObjectStart(uintptr(ref)), "rooted object must survive")

	*roots = nil
	h.Collect()
	require.False(t, h.isObjectStart(uintptr(ref)), "unrooted object must be reclaimed")
	assert.Zero(t, h.Statistics().LiveBytes)

	again := allocLeaf(t, h, 56)
	assert.Equal(t, ref, again, "the freed line should be the next allocation target")
}

// TestCollect_TracesTransitively verifies reachability through object
// fields, not just the root table.
func TestCollect_TracesTransitively(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	a := allocNode(t, h)
	b := allocNode(t, h)
	c := allocLeaf(t, h, 8)
	a.SetField(0, b)
	b.SetField(1, c)
	*roots = append(*roots, a)

	h.Collect()
	require.True(t, h.isObjectStart(uintptr(a)))
	require.True(t, h.isObjectStart(uintptr(b)), "field-reachable object must survive")
	require.True(t, h.isObjectStart(uintptr(c)), "transitively reachable object must survive")

	// Cut the chain at a; b and c go down together.
	a.SetField(0, 0)
	h.Collect()
	assert.True(t, h.isObjectStart(uintptr(a)))
	assert.False(t, h.isObjectStart(uintptr(b)))
	assert.False(t, h.isObjectStart(uintptr(c)))
}

// TestCollect_ReusesHoles verifies the normal allocator lands in the first
// hole a sweep opened up.
func TestCollect_ReusesHoles(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	// Fill exactly one block with 32-byte cells: 8 per line, 128 lines.
	const perBlock = BlockSize / 32
	refs := make([]gckit.Ref, 0, perBlock)
	for range perBlock {
		refs = append(refs, allocLeaf(t, h, 24))
	}
	blockBase := uintptr(refs[0])
	require.Equal(t, blockBase+BlockSize-32, uintptr(refs[perBlock-1]),
		"the block should be filled end to end")

	// Keep the first half of the lines, drop the second half.
	*roots = append(*roots, refs[:perBlock/2]...)
	h.Collect()

	next := allocLeaf(t, h, 24)
	assert.Equal(t, blockBase+BlockSize/2, uintptr(next),
		"allocation should resume at the first reclaimed line")
	require.NoError(t, h.CheckInvariants())
}

// TestCollect_EmptyBlocksReturnToFreeList verifies a fully dead block is
// decommitted rather than kept recyclable.
func TestCollect_EmptyBlocksReturnToFreeList(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	for range 4 * BlockSize / 32 {
		allocLeaf(t, h, 24)
	}
	keeper := allocLeaf(t, h, 24)
	*roots = append(*roots, keeper)
	before := h.Statistics()
	require.NotZero(t, before.BlocksInUse)

	h.Collect()
	after := h.Statistics()
	assert.Equal(t, 1, after.BlocksInUse, "only the keeper's block should stay")
	assert.Equal(t, before.BlocksInUse-1, after.BlocksFree)
}

// TestCollect_FinalizerRunsExactlyOnce verifies death runs the finalizer
// with the memory intact and never again afterward.
func TestCollect_FinalizerRunsExactlyOnce(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())
	takeFinalized()

	ref := h.Allocate(32, testTypes.fin)
	require.False(t, ref.IsNil())
	*roots = append(*roots, ref)

	h.Collect()
	assert.Zero(t, takeFinalized(), "live object must not finalize")

	*roots = nil
	h.Collect()
	assert.Equal(t, 1, takeFinalized(), "dead object finalizes once")

	h.Collect()
	assert.Zero(t, takeFinalized(), "a reclaimed object never finalizes again")
}

// TestCollect_LargeObjectLifecycle verifies large mappings come and go with
// reachability.
func TestCollect_LargeObjectLifecycle(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())

	big := allocLeaf(t, h, 3*LargeCutoff)
	*roots = append(*roots, big)
	h.Collect()
	require.True(t, h.large.contains(uintptr(big)))
	require.Equal(t, 1, h.Statistics().LargeObjects)

	*roots = nil
	h.Collect()
	assert.Zero(t, h.Statistics().LargeObjects)
	assert.Zero(t, h.large.mapped, "dead large mappings should be released")
}

// TestCollect_DeferBlocksCycles verifies DeferGC holds collection off until
// every release has run.
func TestCollect_DeferBlocksCycles(t *testing.T) {
	h, roots := newRootedHeap(t, smallTestConfig())
	ref := allocLeaf(t, h, 24)
	_ = roots

	release := h.DeferGC()
	releaseInner := h.DeferGC()

	h.Collect()
	assert.Zero(t, h.Statistics().Collections, "deferred heap must not collect")
	require.True(t, h.isObjectStart(uintptr(ref)))

	releaseInner()
	releaseInner() // double release is harmless
	h.Collect()
	assert.Zero(t, h.Statistics().Collections, "outer defer still holds")

	release()
	h.Collect()
	assert.Equal(t, uint64(1), h.Statistics().Collections)
	assert.False(t, h.isObjectStart(uintptr(ref)), "unrooted object dies once defers lift")
}

// TestCollectIfNecessary_TriggersOnEdenExhaustion verifies the safepoint
// entry point collects only when the allocation budget is spent.
func TestCollectIfNecessary_TriggersOnEdenExhaustion(t *testing.T) {
	cfg := smallTestConfig()
	cfg.MaxEdenSize = minEdenBudget // trigger quickly
	h, _ := newRootedHeap(t, cfg)

	h.CollectIfNecessaryOrDefer()
	require.Zero(t, h.Statistics().Collections, "nothing allocated, nothing to do")

	for h.Statistics().Collections == 0 {
		allocLeaf(t, h, 240)
		h.CollectIfNecessaryOrDefer()
	}
	assert.LessOrEqual(t, h.Statistics().BytesAllocated, uint64(2*minEdenBudget),
		"the first cycle should arrive within roughly one eden budget")
}

// TestCollect_BudgetGrowsUnderPressure verifies the heap budget expands
// once live data crosses the growth threshold.
func TestCollect_BudgetGrowsUnderPressure(t *testing.T) {
	cfg := smallTestConfig()
	cfg.HeapSize = 512 * BlockSize
	h, roots := newRootedHeap(t, cfg)

	require.Equal(t, uintptr(initialHeapBudget), h.Statistics().HeapBudget)

	// Keep everything alive until live data crosses threshold * budget.
	for h.Statistics().LiveBytes < initialHeapBudget {
		for range 64 {
			*roots = append(*roots, allocLeaf(t, h, 2040))
		}
		h.Collect()
	}
	grown := h.Statistics().HeapBudget
	assert.Greater(t, grown, uintptr(initialHeapBudget), "budget should grow with live data")
	assert.GreaterOrEqual(t, h.Statistics().EdenBudget, uintptr(minEdenBudget))
}

// TestCollect_ReentryIsIgnored verifies a constraint calling Collect does
// not recurse.
func TestCollect_ReentryIsIgnored(t *testing.T) {
	h, _ := newRootedHeap(t, smallTestConfig())

	h.AddConstraint(ConstraintFunc(func(v gckit.Visitor) {
		h.Collect() // must be a no-op mid-cycle
	}))
	h.Collect()
	assert.Equal(t, uint64(1), h.Statistics().Collections)
}
