// Package mmap provides the anonymous-memory primitives the heap is built
// on: reserving address space, committing and decommitting page ranges, and
// releasing whole mappings. Unix targets use real mmap through
// golang.org/x/sys; other targets fall back to Go-allocated memory with the
// same contract.
package mmap

import (
	"fmt"
	"unsafe"
)

// Region is a contiguous range of heap-owned memory. The zero value is not
// usable; obtain regions from Reserve or Map.
type Region struct {
	data []byte
}

// Base returns the address of the first byte of the region.
func (r *Region) Base() uintptr {
	if len(r.data) == 0 {
		return 0
	}
	return addrOf(r.data)
}

// Len returns the region length in bytes.
func (r *Region) Len() uintptr {
	return uintptr(len(r.data))
}

// Contains reports whether addr falls inside the region.
func (r *Region) Contains(addr uintptr) bool {
	base := r.Base()
	return addr >= base && addr < base+r.Len()
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// slice returns the region bytes backing [addr, addr+n).
func (r *Region) slice(addr, n uintptr) ([]byte, error) {
	base := r.Base()
	if addr < base || addr+n > base+r.Len() || addr+n < addr {
		return nil, fmt.Errorf("mmap: range [%#x, %#x) outside region [%#x, %#x)",
			addr, addr+n, base, base+r.Len())
	}
	off := addr - base
	return r.data[off : off+n], nil
}
