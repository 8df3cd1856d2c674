package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAndQuery(t *testing.T) {
	base := uintptr(0x10000)
	tab := New(base, 8*Size)

	require.Zero(t, tab.DirtyCount())

	tab.MarkDirty(base + 3*Size + 17)

	assert.True(t, tab.IsDirty(base+3*Size), "any address in the card reads dirty")
	assert.True(t, tab.IsDirty(base+3*Size+Size-1))
	assert.False(t, tab.IsDirty(base+2*Size), "neighboring cards stay clean")
	assert.False(t, tab.IsDirty(base+4*Size))
	assert.Equal(t, 1, tab.DirtyCount())
}

func TestOutOfRangeWritesIgnored(t *testing.T) {
	base := uintptr(0x10000)
	tab := New(base, 4*Size)

	tab.MarkDirty(base - 1)
	tab.MarkDirty(base + 4*Size)

	assert.Zero(t, tab.DirtyCount())
	assert.False(t, tab.IsDirty(base-1))
	assert.False(t, tab.IsDirty(base+4*Size))
}

func TestVisitDirtyInAddressOrder(t *testing.T) {
	base := uintptr(0x40000)
	tab := New(base, 16*Size)

	tab.MarkDirty(base + 9*Size)
	tab.MarkDirty(base + 2*Size + 5)
	tab.MarkDirty(base + 2*Size + 900) // same card as the previous write

	var got [][2]uintptr
	tab.VisitDirty(func(start, end uintptr) {
		got = append(got, [2]uintptr{start, end})
	})

	require.Len(t, got, 2, "two distinct dirty cards")
	assert.Equal(t, [2]uintptr{base + 2*Size, base + 3*Size}, got[0])
	assert.Equal(t, [2]uintptr{base + 9*Size, base + 10*Size}, got[1])
}

func TestVisitDirtyClampsFinalCard(t *testing.T) {
	base := uintptr(0x40000)
	span := 2*Size + 100 // table rounds up to three cards
	tab := New(base, uintptr(span))

	tab.MarkDirty(base + 2*Size + 50)

	var end uintptr
	tab.VisitDirty(func(_, e uintptr) { end = e })
	assert.Equal(t, base+uintptr(span), end, "final card must not extend past the span")
}

func TestClearAll(t *testing.T) {
	base := uintptr(0x40000)
	tab := New(base, 8*Size)

	for i := uintptr(0); i < 8; i++ {
		tab.MarkDirty(base + i*Size)
	}
	require.Equal(t, 8, tab.DirtyCount())

	tab.ClearAll()

	assert.Zero(t, tab.DirtyCount())
	visited := false
	tab.VisitDirty(func(_, _ uintptr) { visited = true })
	assert.False(t, visited, "no cards to visit after a clear")
}
