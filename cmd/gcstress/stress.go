package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/gckit"
	"github.com/joshuapare/gckit/heap"
)

var (
	stressSeconds      float64
	stressOps          uint64
	stressLive         int
	stressPayload      int
	stressLargeEvery   int
	stressWeakEvery    int
	stressSeed         int64
	stressHeapMB       int
	stressMaxHeapMB    int
	stressEdenKB       int
	stressGenerational bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().Float64Var(&stressSeconds, "seconds", 5, "How long to run")
	cmd.Flags().Uint64Var(&stressOps, "ops", 0, "Stop after this many allocations (0 = run out the clock)")
	cmd.Flags().IntVar(&stressLive, "live", 10000, "Target live object count")
	cmd.Flags().IntVar(&stressPayload, "payload", 64, "Base payload size in bytes")
	cmd.Flags().IntVar(&stressLargeEvery, "large-every", 4096, "Allocate a large object every N allocations (0 = never)")
	cmd.Flags().IntVar(&stressWeakEvery, "weak-every", 64, "Take a weak reference every N allocations (0 = never)")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Workload random seed")
	cmd.Flags().IntVar(&stressHeapMB, "heap", 512, "Block space reservation in MiB")
	cmd.Flags().IntVar(&stressMaxHeapMB, "max-heap", 0, "Hard cap on committed memory in MiB (0 = uncapped)")
	cmd.Flags().IntVar(&stressEdenKB, "eden", 0, "Cap on the allocation budget between cycles in KiB (0 = uncapped)")
	cmd.Flags().BoolVar(&stressGenerational, "generational", false, "Enable minor cycles with the write barrier")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run an allocation workload and report collector statistics",
		Long: `The stress command allocates a churn of leaf and pair objects against a
steady live set, mutating old objects through the write barrier and taking
weak references along the way, with a safepoint poll after every
allocation. When the run ends it forces a full cycle, checks heap
invariants, and prints the collector's own accounting.

Example:
  gcstress stress --seconds 10 --live 50000
  gcstress stress --generational --eden 512 --verbose
  gcstress stress --max-heap 64 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

// Workload object shapes, registered once per process because GCInfo
// entries are never released.
var stressTypes struct {
	once sync.Once
	leaf gckit.GCInfoIndex
	pair gckit.GCInfoIndex
}

func registerStressTypes() {
	stressTypes.once.Do(func() {
		gckit.Init()
		stressTypes.leaf = gckit.AddGCInfo(gckit.GCInfo{})
		stressTypes.pair = gckit.AddGCInfo(gckit.GCInfo{
			Trace: func(v gckit.Visitor, obj gckit.Ref) {
				v.Trace(obj.Field(0))
				v.Trace(obj.Field(1))
			},
		})
	})
}

type stressReport struct {
	Seconds       float64 `json:"seconds"`
	Allocations   uint64  `json:"allocations"`
	AllocsPerSec  float64 `json:"allocations_per_second"`
	PointerWrites uint64  `json:"pointer_writes"`
	WeakTaken     uint64  `json:"weak_taken"`
	WeakLive      uint64  `json:"weak_live"`

	Heap heap.HeapStatistics `json:"heap"`
}

func runStress() error {
	registerStressTypes()
	if stressLive < 1 {
		stressLive = 1
	}
	if stressPayload < 8 {
		stressPayload = 8
	}

	cfg := heap.DefaultConfig()
	cfg.HeapSize = uintptr(stressHeapMB) << 20
	cfg.MaxHeapSize = uintptr(stressMaxHeapMB) << 20
	cfg.MaxEdenSize = uintptr(stressEdenKB) << 10
	cfg.Generational = stressGenerational
	cfg.Verbose = verbose

	h := heap.New(cfg)
	defer h.Close()

	rng := rand.New(rand.NewSource(stressSeed))
	roots := make([]gckit.Ref, stressLive)
	h.AddConstraint(heap.ConstraintFunc(func(v gckit.Visitor) {
		for _, r := range roots {
			v.Trace(r)
		}
	}))

	weak := make([]*heap.WeakRef, 0, 512)
	var (
		allocs        uint64
		pointerWrites uint64
		weakTaken     uint64
	)

	pairSize := uintptr(8 + 2*8)
	printVerbose("stress: live target %d, payload %d, heap %dMiB, generational=%v\n",
		stressLive, stressPayload, stressHeapMB, stressGenerational)

	start := time.Now()
	deadline := start.Add(time.Duration(stressSeconds * float64(time.Second)))
	nextTick := start.Add(time.Second)

	for time.Now().Before(deadline) && (stressOps == 0 || allocs < stressOps) {
		var ref gckit.Ref
		switch {
		case stressLargeEvery > 0 && allocs%uint64(stressLargeEvery) == 0 && allocs > 0:
			size := uintptr(heap.LargeCutoff + rng.Intn(heap.BlockSize))
			ref = h.AllocateOrFail(size, stressTypes.leaf)
		case allocs%2 == 0:
			ref = h.AllocateOrFail(pairSize, stressTypes.pair)
			ref.SetField(0, roots[rng.Intn(len(roots))])
			ref.SetField(1, roots[rng.Intn(len(roots))])
		default:
			size := uintptr(8 + stressPayload/2 + rng.Intn(stressPayload+1))
			ref = h.AllocateOrFail(size, stressTypes.leaf)
		}
		allocs++
		roots[rng.Intn(len(roots))] = ref

		// Mutate a random survivor so minor cycles have cards to chase.
		if allocs%8 == 0 {
			old := roots[rng.Intn(len(roots))]
			if !old.IsNil() && old.GCInfoIndex() == stressTypes.pair {
				old.SetField(rng.Intn(2), ref)
				h.WriteBarrier(old)
				pointerWrites++
			}
		}

		if stressWeakEvery > 0 && allocs%uint64(stressWeakEvery) == 0 {
			w := h.AllocateWeak(ref)
			if len(weak) < cap(weak) {
				weak = append(weak, w)
			} else {
				weak[int(weakTaken)%cap(weak)] = w
			}
			weakTaken++
		}

		h.CollectIfNecessaryOrDefer()

		if verbose && !time.Now().Before(nextTick) {
			s := h.Statistics()
			printVerbose("stress: %s\n", s.String())
			nextTick = nextTick.Add(time.Second)
		}
	}

	// Settle and verify before reporting.
	h.Collect()
	if err := h.CheckInvariants(); err != nil {
		printError("invariant check failed: %v\n", err)
		return err
	}

	elapsed := time.Since(start)
	var weakLive uint64
	for _, w := range weak {
		if !w.Upgrade().IsNil() {
			weakLive++
		}
	}

	report := stressReport{
		Seconds:       elapsed.Seconds(),
		Allocations:   allocs,
		AllocsPerSec:  float64(allocs) / elapsed.Seconds(),
		PointerWrites: pointerWrites,
		WeakTaken:     weakTaken,
		WeakLive:      weakLive,
		Heap:          h.Statistics(),
	}

	if jsonOut {
		return printJSON(report)
	}

	p := message.NewPrinter(language.English)
	printInfo("Stress run: %.1fs, generational=%v\n\n", report.Seconds, stressGenerational)
	printInfo("%s\n", p.Sprintf("  Allocations:    %d (%.0f/s)", report.Allocations, report.AllocsPerSec))
	printInfo("%s\n", p.Sprintf("  Pointer writes: %d", report.PointerWrites))
	printInfo("%s\n", p.Sprintf("  Weak refs:      %d taken, %d of the sample still live", report.WeakTaken, report.WeakLive))
	printInfo("\n%s\n", report.Heap.String())
	return nil
}
