package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents one parsed `go test -bench` line.
type BenchmarkResult struct {
	Name        string
	Operation   string // benchmark name without the Benchmark prefix
	Variant     string // sub-benchmark path, empty when flat
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs a current result with its baseline counterpart.
type ComparisonResult struct {
	Operation      string
	Variant        string
	CurrentNs      float64
	BaselineNs     float64
	Speedup        float64
	CurrentMem     int64
	BaselineMem    int64
	CurrentAllocs  int64
	BaselineAllocs int64
	CurrentOnly    bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	baselineFile = flag.String(
		"baseline",
		"",
		"Baseline benchmark output to compare against (optional)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	// Read current benchmark output
	var scanner *bufio.Scanner
	var inputF *os.File
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		inputF = f
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	current := parseBenchmarks(scanner)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(current))
	}

	// Read baseline, if given
	var baseline []BenchmarkResult
	if *baselineFile != "" {
		f, err := os.Open(*baselineFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening baseline file: %v\n", err)
			if inputF != nil {
				inputF.Close()
			}
			os.Exit(1)
		}
		baseline = parseBenchmarks(bufio.NewScanner(f))
		f.Close()

		if !*quiet {
			fmt.Fprintf(os.Stderr, "Parsed %d baseline results\n", len(baseline))
		}
	}

	comparisons := generateComparisons(current, baseline)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	report := generateMarkdownReport(comparisons, *baselineFile != "")

	// Write output
	if *outputFile != "" {
		err := os.WriteFile(*outputFile, []byte(report), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			if inputF != nil {
				inputF.Close()
			}
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Fprint(os.Stdout, report)
	}

	// Close input file if opened
	if inputF != nil {
		inputF.Close()
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	// Regex to parse benchmark output lines
	// BenchmarkAllocate_Small-8    10000    12450 ns/op    4096 B/op    8 allocs/op
	benchmarkRegex := regexp.MustCompile(
		`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+(?:B|MB)/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
	)

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		// Parse benchmark line
		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)

		var bytesPerOp int64
		var allocsPerOp int64

		if matches[4] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		operation, variant := splitBenchmarkName(name)

		results = append(results, BenchmarkResult{
			Name:        name,
			Operation:   operation,
			Variant:     variant,
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// splitBenchmarkName strips the Benchmark prefix and the -procs suffix and
// separates the sub-benchmark path.
//
//	BenchmarkAllocate_Small-8             -> ("Allocate_Small", "")
//	BenchmarkCollect_LiveGraph/nodes_10k-8 -> ("Collect_LiveGraph", "nodes_10k")
func splitBenchmarkName(name string) (operation, variant string) {
	parts := strings.Split(name, "/")

	last := parts[len(parts)-1]
	if dashIdx := strings.LastIndex(last, "-"); dashIdx > 0 {
		parts[len(parts)-1] = last[:dashIdx]
	}

	operation = strings.TrimPrefix(parts[0], "Benchmark")
	if len(parts) > 1 {
		variant = strings.Join(parts[1:], "/")
	}
	return operation, variant
}

func generateComparisons(current, baseline []BenchmarkResult) []ComparisonResult {
	type key struct {
		operation string
		variant   string
	}

	base := make(map[key]BenchmarkResult)
	for _, result := range baseline {
		base[key{result.Operation, result.Variant}] = result
	}

	var comparisons []ComparisonResult
	for _, result := range current {
		k := key{result.Operation, result.Variant}
		b, hasBaseline := base[k]

		if hasBaseline {
			comparisons = append(comparisons, ComparisonResult{
				Operation:      k.operation,
				Variant:        k.variant,
				CurrentNs:      result.NsPerOp,
				BaselineNs:     b.NsPerOp,
				Speedup:        b.NsPerOp / result.NsPerOp,
				CurrentMem:     result.BytesPerOp,
				BaselineMem:    b.BytesPerOp,
				CurrentAllocs:  result.AllocsPerOp,
				BaselineAllocs: b.AllocsPerOp,
				CurrentOnly:    false,
			})
		} else {
			comparisons = append(comparisons, ComparisonResult{
				Operation:     k.operation,
				Variant:       k.variant,
				CurrentNs:     result.NsPerOp,
				CurrentMem:    result.BytesPerOp,
				CurrentAllocs: result.AllocsPerOp,
				CurrentOnly:   true,
			})
		}
	}

	// Sort by operation then variant
	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Operation != comparisons[j].Operation {
			return comparisons[i].Operation < comparisons[j].Operation
		}
		return comparisons[i].Variant < comparisons[j].Variant
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, hasBaseline bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// Summary statistics
	improved := 0
	regressed := 0
	newOnly := 0
	totalSpeedup := 0.0

	for _, comp := range comparisons {
		if comp.CurrentOnly {
			newOnly++
		} else {
			if comp.Speedup > 1.0 {
				improved++
			} else if comp.Speedup < 1.0 {
				regressed++
			}
			totalSpeedup += comp.Speedup
		}
	}

	comparableCount := len(comparisons) - newOnly
	avgSpeedup := 0.0
	if comparableCount > 0 {
		avgSpeedup = totalSpeedup / float64(comparableCount)
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total benchmarks**: %d\n", len(comparisons)))
	if hasBaseline {
		sb.WriteString(fmt.Sprintf("- **Comparable** (present in baseline): %d\n", comparableCount))
		if comparableCount > 0 {
			sb.WriteString(
				fmt.Sprintf(
					"  - improved: %d (%.1f%%)\n",
					improved,
					float64(improved)/float64(comparableCount)*100,
				),
			)
			sb.WriteString(
				fmt.Sprintf(
					"  - regressed: %d (%.1f%%)\n",
					regressed,
					float64(regressed)/float64(comparableCount)*100,
				),
			)
			sb.WriteString(fmt.Sprintf("  - Average speedup: **%.2fx**\n", avgSpeedup))
		}
		sb.WriteString(fmt.Sprintf("- **New benchmarks** (no baseline): %d\n", newOnly))
	}
	sb.WriteString("\n")

	// Detailed results table
	sb.WriteString("## Detailed Results\n\n")
	if hasBaseline {
		sb.WriteString(
			"| Operation | Variant | current (ns/op) | baseline (ns/op) | Speedup | Memory (B/op) | Allocs |\n",
		)
		sb.WriteString(
			"|-----------|---------|-----------------|------------------|---------|---------------|--------|\n",
		)
	} else {
		sb.WriteString("| Operation | Variant | ns/op | Memory (B/op) | Allocs |\n")
		sb.WriteString("|-----------|---------|-------|---------------|--------|\n")
	}

	for _, comp := range comparisons {
		if !hasBaseline {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				comp.Operation,
				comp.Variant,
				formatNumber(comp.CurrentNs),
				formatBytes(comp.CurrentMem),
				formatNumber(float64(comp.CurrentAllocs)),
			))
			continue
		}

		if comp.CurrentOnly {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | *N/A* | *new* | %s | %s |\n",
				comp.Operation,
				comp.Variant,
				formatNumber(comp.CurrentNs),
				formatBytes(comp.CurrentMem),
				formatNumber(float64(comp.CurrentAllocs)),
			))
			continue
		}

		indicator := "✓"
		speedupStyle := "**"
		if comp.Speedup < 1.0 {
			indicator = "✗"
			speedupStyle = ""
		}

		memIndicator := ""
		if comp.CurrentMem < comp.BaselineMem {
			memIndicator = " ✓"
		} else if comp.CurrentMem > comp.BaselineMem {
			memIndicator = " ✗"
		}

		allocIndicator := ""
		if comp.CurrentAllocs < comp.BaselineAllocs {
			allocIndicator = " ✓"
		} else if comp.CurrentAllocs > comp.BaselineAllocs {
			allocIndicator = " ✗"
		}

		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s%.2fx%s %s | %s vs %s%s | %s vs %s%s |\n",
			comp.Operation,
			comp.Variant,
			formatNumber(comp.CurrentNs),
			formatNumber(comp.BaselineNs),
			speedupStyle,
			comp.Speedup,
			speedupStyle,
			indicator,
			formatBytes(comp.CurrentMem),
			formatBytes(comp.BaselineMem),
			memIndicator,
			formatNumber(float64(comp.CurrentAllocs)),
			formatNumber(float64(comp.BaselineAllocs)),
			allocIndicator,
		))
	}

	sb.WriteString("\n")

	// Category summaries
	sb.WriteString("## Performance by Category\n\n")

	categories := categorizeOperations(comparisons)
	for _, category := range categoryOrder {
		comps := categories[category]
		if len(comps) == 0 {
			continue
		}

		if !hasBaseline {
			sb.WriteString(fmt.Sprintf("- **%s**: %d benchmarks\n", category, len(comps)))
			continue
		}

		avgSpeed := 0.0
		count := 0
		for _, comp := range comps {
			if !comp.CurrentOnly {
				avgSpeed += comp.Speedup
				count++
			}
		}

		if count > 0 {
			avgSpeed /= float64(count)
			status := "✓"
			if avgSpeed < 1.0 {
				status = "✗"
			}
			sb.WriteString(fmt.Sprintf("- %s **%s**: %.2fx average speedup %s\n",
				status, category, avgSpeed, status))
		} else {
			sb.WriteString(fmt.Sprintf("- **%s**: new benchmarks only\n", category))
		}
	}

	sb.WriteString("\n")

	// Notes
	sb.WriteString("## Notes\n\n")
	if hasBaseline {
		sb.WriteString("- **Speedup > 1.0**: current run is faster ✓\n")
		sb.WriteString("- **Speedup < 1.0**: current run is slower ✗\n")
		sb.WriteString("- **Memory comparison**: Lower is better\n")
		sb.WriteString("- **Allocations**: Fewer is better\n")
	} else {
		sb.WriteString("- Run with `-baseline old.txt` to compare two runs\n")
		sb.WriteString("- Collection benchmarks report whole-cycle pauses, not amortized costs\n")
	}

	return sb.String()
}

var categoryOrder = []string{
	"Allocation",
	"Collection",
	"Write barrier",
	"Conservative roots",
	"Weak references",
	"Size classes",
	"Other",
}

func categorizeOperations(comparisons []ComparisonResult) map[string][]ComparisonResult {
	categories := make(map[string][]ComparisonResult, len(categoryOrder))
	for _, c := range categoryOrder {
		categories[c] = []ComparisonResult{}
	}

	for _, comp := range comparisons {
		op := strings.ToLower(comp.Operation)

		switch {
		case strings.Contains(op, "alloc"):
			categories["Allocation"] = append(categories["Allocation"], comp)
		case strings.Contains(op, "collect") || strings.Contains(op, "mark") ||
			strings.Contains(op, "sweep"):
			categories["Collection"] = append(categories["Collection"], comp)
		case strings.Contains(op, "barrier") || strings.Contains(op, "card"):
			categories["Write barrier"] = append(categories["Write barrier"], comp)
		case strings.Contains(op, "conservative") || strings.Contains(op, "root"):
			categories["Conservative roots"] = append(categories["Conservative roots"], comp)
		case strings.Contains(op, "weak"):
			categories["Weak references"] = append(categories["Weak references"], comp)
		case strings.Contains(op, "sizeclass") || strings.Contains(op, "class"):
			categories["Size classes"] = append(categories["Size classes"], comp)
		default:
			categories["Other"] = append(categories["Other"], comp)
		}
	}

	return categories
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
