package heap

import (
	"fmt"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// HeapStatistics is a point-in-time snapshot of heap state and lifetime
// counters. Byte figures for budgets and live data reflect the last
// completed cycle.
type HeapStatistics struct {
	// Memory
	CommittedBytes uintptr // bytes counted against MaxHeapSize
	LiveBytes      uintptr // survivors of the last cycle
	HeapBudget     uintptr // full-collection trigger
	EdenBudget     uintptr // allocation allowance between collections
	AllocatedBytes uintptr // allocated since the last cycle

	// Topology
	BlocksInUse  int
	BlocksFree   int
	LargeObjects int
	SizeClasses  int

	// Lifetime counters
	Collections       uint64
	FullCollections   uint64
	MinorCollections  uint64
	ObjectsAllocated  uint64
	BytesAllocated    uint64
	ObjectsReclaimed  uint64
	ConservativeRoots uint64
	WeakRefsCleared   uint64

	LastPause  time.Duration
	TotalPause time.Duration
}

// Statistics snapshots the heap. Safe to call any time the heap is idle.
func (h *Heap) Statistics() HeapStatistics {
	return HeapStatistics{
		CommittedBytes: h.committed(),
		LiveBytes:      h.liveBytes,
		HeapBudget:     h.heapBudget,
		EdenBudget:     h.edenBudget,
		AllocatedBytes: h.bytesThisCycle,

		BlocksInUse:  h.space.inUse,
		BlocksFree:   len(h.space.free),
		LargeObjects: len(h.large.objects),
		SizeClasses:  h.classes.count(),

		Collections:       h.cycles,
		FullCollections:   h.fullCycles,
		MinorCollections:  h.minorCycles,
		ObjectsAllocated:  h.objectsAllocated,
		BytesAllocated:    h.bytesAllocated,
		ObjectsReclaimed:  h.objectsReclaimed,
		ConservativeRoots: h.pinnedRoots,
		WeakRefsCleared:   h.weakCleared,

		LastPause:  h.lastPause,
		TotalPause: h.totalPause,
	}
}

func human(n uintptr) string {
	return bytesize.New(float64(n)).String()
}

// String renders a compact human-readable summary.
func (s HeapStatistics) String() string {
	return fmt.Sprintf(
		"live %s of %s budget, eden %s (%s used), committed %s in %d blocks + %d large | "+
			"%d collections (%d full, %d minor), %d objects allocated, %d reclaimed, last pause %v",
		human(s.LiveBytes), human(s.HeapBudget), human(s.EdenBudget), human(s.AllocatedBytes),
		human(s.CommittedBytes), s.BlocksInUse, s.LargeObjects,
		s.Collections, s.FullCollections, s.MinorCollections,
		s.ObjectsAllocated, s.ObjectsReclaimed, s.LastPause,
	)
}

// MarshalJSON emits the snapshot as a flat JSON object.
func (s HeapStatistics) MarshalJSON() ([]byte, error) {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("committed_bytes").Int(int(s.CommittedBytes))
	obj.Name("live_bytes").Int(int(s.LiveBytes))
	obj.Name("heap_budget").Int(int(s.HeapBudget))
	obj.Name("eden_budget").Int(int(s.EdenBudget))
	obj.Name("allocated_bytes").Int(int(s.AllocatedBytes))
	obj.Name("blocks_in_use").Int(s.BlocksInUse)
	obj.Name("blocks_free").Int(s.BlocksFree)
	obj.Name("large_objects").Int(s.LargeObjects)
	obj.Name("size_classes").Int(s.SizeClasses)
	obj.Name("collections").Int(int(s.Collections))
	obj.Name("full_collections").Int(int(s.FullCollections))
	obj.Name("minor_collections").Int(int(s.MinorCollections))
	obj.Name("objects_allocated").Int(int(s.ObjectsAllocated))
	obj.Name("bytes_allocated").Int(int(s.BytesAllocated))
	obj.Name("objects_reclaimed").Int(int(s.ObjectsReclaimed))
	obj.Name("conservative_roots").Int(int(s.ConservativeRoots))
	obj.Name("weak_refs_cleared").Int(int(s.WeakRefsCleared))
	obj.Name("last_pause_ms").Float64(float64(s.LastPause) / float64(time.Millisecond))
	obj.Name("total_pause_ms").Float64(float64(s.TotalPause) / float64(time.Millisecond))
	obj.End()
	return w.Bytes(), w.Error()
}
