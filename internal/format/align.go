package format

// Alignment utilities for heap address arithmetic. All allocator boundaries
// in this module are powers of two, so alignment is mask arithmetic.

// AlignGranule returns n rounded up to the next allocation granule.
//
// Example:
//
//	AlignGranule(1)  = 8
//	AlignGranule(8)  = 8
//	AlignGranule(9)  = 16
func AlignGranule(n uintptr) uintptr {
	return (n + GranularityMask) &^ uintptr(GranularityMask)
}

// AlignUp returns n rounded up to the next multiple of boundary, which must
// be a power of two.
func AlignUp(n, boundary uintptr) uintptr {
	return (n + boundary - 1) &^ (boundary - 1)
}

// AlignDown returns n rounded down to the previous multiple of boundary,
// which must be a power of two.
func AlignDown(n, boundary uintptr) uintptr {
	return n &^ (boundary - 1)
}

// IsAligned reports whether n sits on a boundary multiple.
func IsAligned(n, boundary uintptr) bool {
	return n&(boundary-1) == 0
}
