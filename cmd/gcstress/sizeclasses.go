package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/gckit/heap"
)

var sizeClassProgression float64

func init() {
	cmd := newSizeClassesCmd()
	cmd.Flags().Float64Var(&sizeClassProgression, "progression", heap.DefaultConfig().SizeClassProgression,
		"Geometric ratio between neighboring classes")
	rootCmd.AddCommand(cmd)
}

func newSizeClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizeclasses",
		Short: "Print the allocation size class table",
		Long: `The sizeclasses command prints the cell sizes a heap built with the
given progression hands out, with the per-block cell count and tail waste
each class implies. Use it to judge a progression before committing to it
in Config.

Example:
  gcstress sizeclasses
  gcstress sizeclasses --progression 1.2
  gcstress sizeclasses --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSizeClasses()
		},
	}
}

type sizeClassRow struct {
	Size  uintptr `json:"size"`
	Cells uintptr `json:"cells_per_block"`
	Waste uintptr `json:"tail_waste"`
}

func runSizeClasses() error {
	if sizeClassProgression <= 1.0 {
		return fmt.Errorf("progression %v must exceed 1.0", sizeClassProgression)
	}

	classes := heap.SizeClasses(sizeClassProgression)
	rows := make([]sizeClassRow, len(classes))
	for i, size := range classes {
		cells := uintptr(heap.BlockSize) / size
		rows[i] = sizeClassRow{
			Size:  size,
			Cells: cells,
			Waste: uintptr(heap.BlockSize) - cells*size,
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	printInfo("Size classes for progression %.2f (%d-byte blocks):\n\n", sizeClassProgression, heap.BlockSize)
	printInfo("  %8s  %12s  %10s\n", "SIZE", "CELLS/BLOCK", "TAIL WASTE")
	for _, r := range rows {
		printInfo("  %8d  %12d  %10d\n", r.Size, r.Cells, r.Waste)
	}
	printInfo("\n%d classes, large cutoff %d bytes\n", len(rows), heap.LargeCutoff)
	return nil
}
