// Package heap implements a stop-the-world tracing collector over a
// region-based heap: blocks of lines for small and medium objects, private
// mappings for large ones.
//
// # Overview
//
// A Heap owns one contiguous virtual reservation carved into 32KB blocks of
// 256-byte lines. Small objects (under one line) bump-allocate into line
// holes recovered by the previous sweep; medium objects (one line up to a
// quarter block) bump-allocate from a separate overflow block so they never
// stall hole hunting; large objects get a private mapping each. Collection
// marks from embedder-registered root constraints, then sweeps in place.
// Nothing moves, so embedders may hold raw addresses across cycles.
//
// # Lifecycle
//
//	gckit.Init()
//	h := heap.New(heap.DefaultConfig())
//	defer h.Close()
//
//	h.AddConstraint(heap.ConstraintFunc(func(v gckit.Visitor) { v.Trace(root) }))
//	obj := h.AllocateOrFail(24, nodeIndex)
//
// Allocation never collects on its own. Mutators call
// CollectIfNecessaryOrDefer at safepoints, or Collect to force a full cycle.
//
// # Generations
//
// With Config.Generational set, objects allocate young and survivors are
// promoted during sweep. Minor cycles trace only young objects plus the
// remembered set: a card table over the block space and a dirty flag per
// large object, both fed by WriteBarrier. Every pointer store into an object
// that may be old must be followed by WriteBarrier(obj) or minor cycles will
// miss the edge.
//
// # Collection cycle
//
// A cycle runs root enumeration, marking, then sweeping, strictly in that
// order. Allocating from a constraint, trace callback, or finalizer panics.
// Sweep rebuilds per-block line occupancy from survivors, runs finalizers
// for the dead, returns empty blocks to the free list decommitted, and
// resizes the heap and eden budgets that drive CollectIfNecessaryOrDefer.
package heap
