package heap

import "time"

// Collect runs a full stop-the-world collection cycle. It returns without
// collecting while a DeferGC is outstanding or a cycle is already running
// (a constraint or finalizer calling back in).
func (h *Heap) Collect() {
	h.collect(false)
}

// CollectIfNecessaryOrDefer collects when the allocation budget since the
// last cycle is spent: a minor cycle while the heap budget still has room,
// a full cycle otherwise. Mutators call it at safepoints.
func (h *Heap) CollectIfNecessaryOrDefer() {
	if h.closed {
		panic("gc: collect on closed heap")
	}
	if h.deferDepth > 0 || h.phase != phaseIdle {
		return
	}
	if h.bytesThisCycle < h.edenBudget {
		return
	}
	minor := h.cfg.Generational && h.liveBytes+h.bytesThisCycle < h.heapBudget
	h.collect(minor)
}

func (h *Heap) collect(minor bool) {
	if h.closed {
		panic("gc: collect on closed heap")
	}
	if h.deferDepth > 0 || h.phase != phaseIdle {
		return
	}
	start := time.Now()

	// Hand allocator-owned blocks back so the sweep sees them.
	h.normal.reset()
	h.overflow.reset()
	h.large.ensureSorted()

	h.phase = phaseRoots
	v := &markVisitor{h: h, minor: minor}
	for _, c := range h.constraints {
		c.Execute(v)
	}

	h.phase = phaseMarking
	if minor {
		h.scanCards(v)
	}
	v.drain()

	h.phase = phaseSweeping
	h.sweepWeak(minor)
	live := h.sweepBlocks(minor) + h.sweepLarge(minor)
	if h.cards != nil && !minor {
		// A full cycle leaves no young objects, so no remembered set.
		h.cards.ClearAll()
	}
	h.liveBytes = live
	h.updateBudgets(minor)

	h.phase = phaseIdle
	h.cycles++
	kind := "full"
	if minor {
		h.minorCycles++
		kind = "minor"
	} else {
		h.fullCycles++
	}
	h.bytesThisCycle = 0
	h.lastPause = time.Since(start)
	h.totalPause += h.lastPause

	if h.cfg.Verbose {
		h.logf("%s cycle #%d: marked %d objects, live %d, heap budget %d, eden %d, pause %v",
			kind, h.cycles, v.markedObjects, live, h.heapBudget, h.edenBudget, h.lastPause)
	}
}

// updateBudgets resizes the collection triggers after a cycle. Full cycles
// may grow the heap budget by the configured factor once utilization
// crosses the threshold; the large-heap knobs take over past the knee. The
// eden budget is the headroom left under the heap budget.
func (h *Heap) updateBudgets(minor bool) {
	live := h.liveBytes
	if !minor {
		factor, threshold := h.cfg.HeapGrowthFactor, h.cfg.HeapGrowthThreshold
		if live >= h.knee {
			factor, threshold = h.cfg.LargeHeapGrowthFactor, h.cfg.LargeHeapGrowthThreshold
		}
		if float64(live) >= threshold*float64(h.heapBudget) {
			if next := uintptr(float64(live) * factor); next > h.heapBudget {
				h.heapBudget = next
			}
		}
		if h.heapBudget < initialHeapBudget {
			h.heapBudget = initialHeapBudget
		}
		if max := h.cfg.MaxHeapSize; max > 0 && h.heapBudget > max {
			h.heapBudget = max
		}
	}

	eden := uintptr(0)
	if h.heapBudget > live {
		eden = h.heapBudget - live
	}
	if eden < minEdenBudget {
		eden = minEdenBudget
	}
	if max := h.cfg.MaxEdenSize; max > 0 && eden > max {
		eden = max
	}
	h.edenBudget = eden
}
