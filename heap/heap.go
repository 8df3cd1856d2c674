package heap

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/heap/cards"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/mmap"
)

// phase tracks where the heap is inside a collection cycle.
type phase uint8

const (
	phaseIdle phase = iota
	phaseRoots
	phaseMarking
	phaseSweeping
)

// Heap is a stop-the-world, non-moving tracing collector. It is not safe
// for concurrent use; the embedder is expected to stop its mutators around
// Collect, which is what the operations assume.
type Heap struct {
	cfg     Config
	classes *sizeClassTable
	space   *blockSpace
	live    *bitmap
	cards   *cards.Table
	large   largeSpace

	normal   bumpCursor
	overflow bumpCursor

	constraints []Constraint
	rootRanges  [][2]uintptr
	coreAdded   bool

	weak []*WeakRef

	phase      phase
	deferDepth int
	closed     bool

	// budgets
	knee           uintptr
	heapBudget     uintptr
	edenBudget     uintptr
	liveBytes      uintptr
	bytesThisCycle uintptr

	// lifetime counters
	cycles           uint64
	fullCycles       uint64
	minorCycles      uint64
	objectsAllocated uint64
	bytesAllocated   uint64
	objectsReclaimed uint64
	pinnedRoots      uint64
	weakCleared      uint64
	lastPause        time.Duration
	totalPause       time.Duration

	logAlloc bool
}

// New reserves the block space and returns a ready heap. gckit.Init must
// have run first. Configuration violations and reservation failure panic:
// a collector that cannot establish its address space has nothing sensible
// to hand back.
func New(cfg Config) *Heap {
	if !gckit.Initialized() {
		panic("gc: gckit.Init must run before heap.New")
	}
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		panic(err)
	}

	span := format.AlignUp(cfg.HeapSize, BlockSize)
	// One extra block of slack so the base can be block-aligned.
	region, err := mmap.Reserve(span + BlockSize)
	if err != nil {
		panic(errors.Wrap(err, "gc: reserving block space"))
	}
	base := format.AlignUp(region.Base(), BlockSize)

	h := &Heap{
		cfg:        cfg,
		classes:    newSizeClassTable(cfg.SizeClassProgression, cfg.DumpSizeClasses),
		space:      newBlockSpace(region, base, int(span/BlockSize)),
		live:       newBitmap(base, span),
		large:      newLargeSpace(),
		knee:       span / 2,
		heapBudget: initialHeapBudget,
		logAlloc:   os.Getenv("GCKIT_LOG_ALLOC") != "",
	}
	if cfg.Generational {
		h.cards = cards.New(base, span)
	}
	if max := cfg.MaxHeapSize; max > 0 && h.heapBudget > max {
		h.heapBudget = max
	}
	h.normal.block = -1
	h.overflow.block = -1
	h.updateBudgets(true)

	if cfg.Verbose {
		h.logf("heap ready: %d blocks of %d bytes, %d size classes, generational=%v",
			len(h.space.meta), BlockSize, h.classes.count(), cfg.Generational)
	}
	return h
}

// Close releases every mapping the heap owns. Finalizers of still-live
// objects do not run. Closing twice is a no-op.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	if h.phase != phaseIdle {
		return ErrCollecting
	}
	h.closed = true
	firstErr := h.large.releaseAll()
	if err := h.space.region.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return errors.Wrap(firstErr, "gc: releasing heap")
}

// AddConstraint registers a root source. Typical embedders register one
// constraint per root table plus AddCoreConstraints for conservative
// ranges.
func (h *Heap) AddConstraint(c Constraint) {
	h.constraints = append(h.constraints, c)
}

// AddRootRange registers [from, to) for conservative scanning by the core
// constraint. Empty ranges are ignored.
func (h *Heap) AddRootRange(from, to uintptr) {
	if to > from {
		h.rootRanges = append(h.rootRanges, [2]uintptr{from, to})
	}
}

// AddCoreConstraints installs the constraint that conservatively scans all
// registered root ranges. Safe to call more than once; only the first call
// registers.
func (h *Heap) AddCoreConstraints() {
	if h.coreAdded {
		return
	}
	h.coreAdded = true
	h.AddConstraint(ConstraintFunc(func(v gckit.Visitor) {
		for _, r := range h.rootRanges {
			v.TraceConservatively(r[0], r[1])
		}
	}))
}

// DeferGC suspends collection until the returned release function runs.
// Defers nest; CollectIfNecessaryOrDefer and Collect return immediately
// while any defer is outstanding. Releasing twice is harmless.
func (h *Heap) DeferGC() func() {
	h.deferDepth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		h.deferDepth--
	}
}

// ForEachObject visits every live object in address order, block space
// first. fn returns false to stop the walk. Must not run mid-cycle, and fn
// must not allocate.
func (h *Heap) ForEachObject(fn func(obj gckit.Ref) bool) {
	if h.phase != phaseIdle {
		panic("gc: heap walk during collection")
	}
	for i := range h.space.meta {
		if h.space.meta[i].state == blockFree {
			continue
		}
		base := h.space.blockStart(i)
		if !h.live.VisitRange(base, base+BlockSize, func(addr uintptr) bool {
			return fn(gckit.Ref(addr))
		}) {
			return
		}
	}
	h.large.ensureSorted()
	for _, addr := range h.large.objects {
		if !fn(gckit.Ref(addr)) {
			return
		}
	}
}

// isObjectStart reports whether addr is the header address of a live
// object. Arbitrary garbage input is fine; that is what conservative
// scanning feeds it.
func (h *Heap) isObjectStart(addr uintptr) bool {
	if h.space.contains(addr) {
		return h.live.Test(addr)
	}
	return h.large.contains(addr)
}

func (h *Heap) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[gc] "+format+"\n", args...)
}
