package heap

import "github.com/cockroachdb/errors"

// Config controls heap sizing, collection triggers, and feature toggles.
// The zero value of any field selects the DefaultConfig value, so embedders
// can set only what they care about.
type Config struct {
	// Sizing
	HeapSize    uintptr // virtual reservation for the block space, rounded up to BlockSize
	MaxHeapSize uintptr // hard cap on committed bytes across block and large space, 0 = reservation only
	MaxEdenSize uintptr // hard cap on bytes allocated between collections, 0 = uncapped

	// Growth policy. After a full collection the heap budget grows when
	// live/budget utilization crosses the threshold; the large variants
	// take over once live data passes half the reservation.
	HeapGrowthFactor         float64
	HeapGrowthThreshold      float64
	LargeHeapGrowthFactor    float64
	LargeHeapGrowthThreshold float64

	// SizeClassProgression is the geometric ratio between neighboring size
	// classes past the precise range.
	SizeClassProgression float64

	// Features
	Generational    bool // minor cycles with the card-marking barrier
	Verbose         bool // one stderr line per collection cycle
	DumpSizeClasses bool // log the computed size class table at startup
}

// DefaultHeapSize is the block space reservation used when Config.HeapSize
// is zero. Reservation is virtual; physical memory is committed per block.
const DefaultHeapSize = 512 << 20

// DefaultConfig returns the tuning a general-purpose embedder should start
// from.
func DefaultConfig() Config {
	return Config{
		HeapSize:                 DefaultHeapSize,
		HeapGrowthFactor:         1.5,
		HeapGrowthThreshold:      0.75,
		LargeHeapGrowthFactor:    1.24,
		LargeHeapGrowthThreshold: 0.9,
		SizeClassProgression:     1.4,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeapSize == 0 {
		c.HeapSize = d.HeapSize
	}
	if c.HeapGrowthFactor == 0 {
		c.HeapGrowthFactor = d.HeapGrowthFactor
	}
	if c.HeapGrowthThreshold == 0 {
		c.HeapGrowthThreshold = d.HeapGrowthThreshold
	}
	if c.LargeHeapGrowthFactor == 0 {
		c.LargeHeapGrowthFactor = d.LargeHeapGrowthFactor
	}
	if c.LargeHeapGrowthThreshold == 0 {
		c.LargeHeapGrowthThreshold = d.LargeHeapGrowthThreshold
	}
	if c.SizeClassProgression == 0 {
		c.SizeClassProgression = d.SizeClassProgression
	}
	return c
}

// check validates a filled-in config. Violations are programming errors, so
// New panics with the returned error rather than passing it back.
func (c Config) check() error {
	if c.HeapSize < 8*BlockSize {
		return errors.Newf("gc: config: HeapSize %d is below the %d byte minimum", c.HeapSize, 8*BlockSize)
	}
	if c.MaxHeapSize != 0 && c.MaxHeapSize < initialHeapBudget {
		return errors.Newf("gc: config: MaxHeapSize %d is below the %d byte minimum", c.MaxHeapSize, initialHeapBudget)
	}
	if c.MaxEdenSize != 0 && c.MaxEdenSize < minEdenBudget {
		return errors.Newf("gc: config: MaxEdenSize %d is below the %d byte minimum", c.MaxEdenSize, minEdenBudget)
	}
	if c.MaxEdenSize != 0 && c.MaxHeapSize != 0 && c.MaxEdenSize > c.MaxHeapSize {
		return errors.Newf("gc: config: MaxEdenSize %d exceeds MaxHeapSize %d", c.MaxEdenSize, c.MaxHeapSize)
	}
	if c.HeapGrowthFactor <= 1.0 {
		return errors.Newf("gc: config: HeapGrowthFactor %v must exceed 1.0", c.HeapGrowthFactor)
	}
	if c.LargeHeapGrowthFactor <= 1.0 {
		return errors.Newf("gc: config: LargeHeapGrowthFactor %v must exceed 1.0", c.LargeHeapGrowthFactor)
	}
	if c.HeapGrowthThreshold <= 0 || c.HeapGrowthThreshold > 1 {
		return errors.Newf("gc: config: HeapGrowthThreshold %v must be in (0, 1]", c.HeapGrowthThreshold)
	}
	if c.LargeHeapGrowthThreshold <= 0 || c.LargeHeapGrowthThreshold > 1 {
		return errors.Newf("gc: config: LargeHeapGrowthThreshold %v must be in (0, 1]", c.LargeHeapGrowthThreshold)
	}
	if c.SizeClassProgression <= 1.0 {
		return errors.Newf("gc: config: SizeClassProgression %v must exceed 1.0", c.SizeClassProgression)
	}
	return nil
}
