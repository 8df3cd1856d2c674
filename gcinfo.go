package gckit

import (
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/gckit/internal/format"
)

// GCInfoIndex identifies a registered GCInfo. Indices are assigned in
// registration order, never reused, and small enough to pack into every
// object header.
type GCInfoIndex uint16

const (
	// MinIndex is the first index handed out. Index zero and anything below
	// MinIndex are reserved sentinels ("no type").
	MinIndex GCInfoIndex = 1

	// MaxIndex is the exclusive upper bound on indices, fixed by the header
	// field width. Registration past it is fatal.
	MaxIndex = GCInfoIndex(format.IndexMask) + 1

	// initialTableLimit is the capacity of the first table chunk; each
	// later chunk doubles the total, so the spine tops out exactly at
	// MaxIndex without ever moving an entry.
	initialTableLimit = 512
)

// GCInfo is the per-type metadata the collector needs: how to trace an
// object of the type, how to finalize one (nil when nothing to do), and an
// opaque tag the embedder can use to get back to its own type descriptor.
type GCInfo struct {
	Trace    TraceCallback
	Finalize FinalizeCallback
	VTable   uintptr
}

// The process-wide registry. Appends serialize on the mutex; readers go
// through the atomic count alone, which is published only after the entry
// it covers is in place. Chunks are fixed once allocated, so a reader's view
// of any index below the count it loaded is always coherent.
type gcInfoTable struct {
	mu     sync.Mutex
	ready  bool
	count  atomic.Uint32
	chunks [6][]GCInfo
}

var infoTable gcInfoTable

// Init prepares the global GCInfo table. It must be called once before any
// heap is created or type registered; later calls are no-ops.
func Init() {
	infoTable.mu.Lock()
	defer infoTable.mu.Unlock()
	if infoTable.ready {
		return
	}
	infoTable.count.Store(uint32(MinIndex))
	infoTable.ready = true
}

// Initialized reports whether Init has run.
func Initialized() bool {
	infoTable.mu.Lock()
	defer infoTable.mu.Unlock()
	return infoTable.ready
}

// AddGCInfo registers per-type metadata and returns its index. Every call
// returns a fresh index, including calls with identical callbacks. Panics
// once the table is full: type identity is foundational and a truncated
// table cannot be recovered from.
func AddGCInfo(info GCInfo) GCInfoIndex {
	infoTable.mu.Lock()
	defer infoTable.mu.Unlock()
	if !infoTable.ready {
		panic("gckit: GCInfo table not initialized; call gckit.Init first")
	}
	idx := infoTable.count.Load()
	if idx >= uint32(MaxIndex) {
		panic(fmt.Sprintf("gckit: GCInfo table exhausted at %d entries", MaxIndex-MinIndex))
	}
	c, off := tableSlot(idx)
	if infoTable.chunks[c] == nil {
		infoTable.chunks[c] = make([]GCInfo, tableChunkLen(c))
	}
	infoTable.chunks[c][off] = info
	infoTable.count.Store(idx + 1)
	return GCInfoIndex(idx)
}

// GetGCInfo returns the metadata registered under i. Panics on indices
// outside [MinIndex, size): a header carrying one is corrupt or was never
// allocated through this table.
func GetGCInfo(i GCInfoIndex) GCInfo {
	CheckIndex(i)
	c, off := tableSlot(uint32(i))
	return infoTable.chunks[c][off]
}

// CheckIndex panics unless i denotes a registered entry. Allocation calls
// this on its fast path, so it does a single atomic load and two compares.
func CheckIndex(i GCInfoIndex) {
	if !IsValidIndex(i) {
		panic(fmt.Sprintf("gckit: invalid GCInfoIndex %d (table size %d)", i, infoTable.count.Load()))
	}
}

// IsValidIndex is the non-panicking twin of CheckIndex, for validation code
// that wants to report rather than abort.
func IsValidIndex(i GCInfoIndex) bool {
	n := infoTable.count.Load()
	return uint32(i) >= uint32(MinIndex) && uint32(i) < n
}

// tableSlot maps an index to its spine chunk and offset. Chunk 0 holds
// indices [0, 512); chunk c >= 1 holds [256<<c, 512<<c), doubling the total
// capacity each step.
func tableSlot(idx uint32) (int, uint32) {
	if idx < initialTableLimit {
		return 0, idx
	}
	c := bits.Len32(idx >> 9) // 512 = 1<<9
	return c, idx - 256<<c
}

// tableChunkLen returns the capacity of spine chunk c.
func tableChunkLen(c int) int {
	if c == 0 {
		return initialTableLimit
	}
	return 256 << c
}
