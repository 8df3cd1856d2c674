package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
)

// TestSizeClasses_TableShape verifies the default table ascends, stays
// granule-aligned, and spans the precise range exactly.
func TestSizeClasses_TableShape(t *testing.T) {
	table := newSizeClassTable(DefaultConfig().SizeClassProgression, false)

	require.NotEmpty(t, table.classes)
	assert.Equal(t, uintptr(sizeStep), table.classes[0])
	for i, c := range table.classes {
		assert.Zero(t, c%sizeStep, "class %d should be a sizeStep multiple", c)
		assert.LessOrEqual(t, c, uintptr(LargeCutoff))
		if i > 0 {
			assert.Greater(t, c, table.classes[i-1], "classes must strictly ascend")
		}
	}

	// The linear phase: every step multiple up to the precise cutoff.
	for want := uintptr(sizeStep); want <= preciseCutoff; want += sizeStep {
		assert.Contains(t, table.classes, want)
	}
}

// TestSizeClasses_RoundingNeverShrinks verifies sizeFor is monotone and
// never returns less than asked.
func TestSizeClasses_RoundingNeverShrinks(t *testing.T) {
	table := newSizeClassTable(DefaultConfig().SizeClassProgression, false)

	prev := uintptr(0)
	for n := uintptr(MinObjectSize); n < LargeCutoff; n += 8 {
		got := table.sizeFor(n)
		require.GreaterOrEqual(t, got, n, "sizeFor(%d) shrank", n)
		require.GreaterOrEqual(t, got, prev, "sizeFor must be monotone at %d", n)
		require.Zero(t, got%format.Granularity)
		prev = got
	}
}

// TestSizeClasses_ExactHits verifies requests landing on a class stay put.
func TestSizeClasses_ExactHits(t *testing.T) {
	table := newSizeClassTable(DefaultConfig().SizeClassProgression, false)

	for _, c := range table.classes {
		assert.Equal(t, c, table.sizeFor(c), "a class size is its own class")
	}
	assert.Equal(t, uintptr(16), table.sizeFor(9))
	assert.Equal(t, uintptr(80), table.sizeFor(80))
	assert.NotEqual(t, uintptr(96), table.sizeFor(81), "the geometric phase starts past 80")
}

// TestSizeClasses_BlockTiling verifies each class fits at least one cell
// per block and never overshoots the payload it tiles.
func TestSizeClasses_BlockTiling(t *testing.T) {
	table := newSizeClassTable(DefaultConfig().SizeClassProgression, false)

	for _, c := range table.classes {
		cells := uintptr(BlockSize) / c
		require.NotZero(t, cells, "class %d must fit a block", c)
		assert.LessOrEqual(t, cells*c, uintptr(BlockSize))
	}
}

// TestSizeClasses_SteeperProgressionMakesFewerClasses sanity-checks the
// knob actually steers table density.
func TestSizeClasses_SteeperProgressionMakesFewerClasses(t *testing.T) {
	fine := newSizeClassTable(1.2, false)
	coarse := newSizeClassTable(2.0, false)
	assert.Greater(t, fine.count(), coarse.count())
}

// TestSizeClasses_ExportedSnapshot verifies the public accessor matches the
// table a heap would build and hands back an independent copy.
func TestSizeClasses_ExportedSnapshot(t *testing.T) {
	progression := DefaultConfig().SizeClassProgression
	got := SizeClasses(progression)
	want := newSizeClassTable(progression, false).classes
	assert.Equal(t, want, got)

	got[0] = 0
	assert.Equal(t, want, SizeClasses(progression), "callers get a copy, not the table")

	assert.Panics(t, func() { SizeClasses(1.0) })
}
