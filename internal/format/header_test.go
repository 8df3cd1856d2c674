package format

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderIsOneWord(t *testing.T) {
	require.Equal(t, uintptr(HeaderSize), unsafe.Sizeof(Header{}),
		"header layout must stay exactly one machine word")
}

func TestMakeRecordsIndexAndSize(t *testing.T) {
	h := Make(42, 64)
	assert.Equal(t, uint16(42), h.Index())
	assert.Equal(t, uintptr(64), h.Size())
	assert.False(t, h.Marked(), "fresh objects start unmarked")
	assert.False(t, h.Old(), "fresh objects start young")
	assert.False(t, h.Free())
	assert.False(t, h.Pinned())
}

func TestMakeLargeKeepsSizeZero(t *testing.T) {
	h := MakeLarge(7)
	assert.Equal(t, uint16(7), h.Index())
	assert.Zero(t, h.Size(), "large objects defer to LargeMeta for their size")
}

func TestMarkBitRoundTrip(t *testing.T) {
	h := Make(3, 32)

	require.False(t, h.TestAndSetMarked(), "first mark must report previously unmarked")
	assert.True(t, h.Marked())
	assert.True(t, h.TestAndSetMarked(), "second mark must report already marked")

	h.ClearMarked()
	assert.False(t, h.Marked())
	assert.Equal(t, uintptr(32), h.Size(), "mark traffic must not disturb the size")
	assert.Equal(t, uint16(3), h.Index(), "mark traffic must not disturb the index")
}

func TestFlagsDoNotInterfere(t *testing.T) {
	h := Make(IndexMask, MaxEncodableSize)

	h.SetOld()
	h.SetPinned()
	require.False(t, h.TestAndSetMarked())

	assert.True(t, h.Old())
	assert.True(t, h.Pinned())
	assert.True(t, h.Marked())
	assert.Equal(t, uint16(IndexMask), h.Index())
	assert.Equal(t, uintptr(MaxEncodableSize), h.Size())

	h.ClearPinned()
	assert.False(t, h.Pinned())
	assert.True(t, h.Old(), "unpinning must not demote the generation")
}

func TestSetFreeClearsMark(t *testing.T) {
	h := Make(5, 48)
	h.TestAndSetMarked()

	h.SetFree()

	assert.True(t, h.Free())
	assert.False(t, h.Marked(), "a swept header must never read as reachable")
}

func TestLargeMetaDirtyFlag(t *testing.T) {
	m := LargeMeta{CellSize: 16384, MapLen: 32768}

	assert.False(t, m.Dirty())
	m.SetDirty()
	assert.True(t, m.Dirty())
	m.ClearDirty()
	assert.False(t, m.Dirty())
	assert.Equal(t, uintptr(16384), m.CellSize, "flag traffic must not disturb the size")
}

func TestAlignGranule(t *testing.T) {
	cases := []struct{ in, want uintptr }{
		{0, 0},
		{1, 8},
		{8, 8},
		{9, 16},
		{63, 64},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AlignGranule(tc.in), "AlignGranule(%d)", tc.in)
	}
}

func TestAlignUpDown(t *testing.T) {
	assert.Equal(t, uintptr(32768), AlignUp(1, 32768))
	assert.Equal(t, uintptr(32768), AlignUp(32768, 32768))
	assert.Equal(t, uintptr(65536), AlignUp(32769, 32768))
	assert.Equal(t, uintptr(0), AlignDown(32767, 32768))
	assert.Equal(t, uintptr(32768), AlignDown(40000, 32768))
	assert.True(t, IsAligned(65536, 32768))
	assert.False(t, IsAligned(65537, 32768))
}
