//go:build !unix

package mmap

// Fallback for targets without mmap: the Go allocator backs the region and
// every page is committed from the start. Decommit degrades to an explicit
// clear so callers still observe zeroed memory on reuse.

// Reserve allocates size bytes of zeroed memory.
func Reserve(size uintptr) (*Region, error) {
	return &Region{data: make([]byte, size)}, nil
}

// Map allocates size bytes of zeroed memory.
func Map(size uintptr) (*Region, error) {
	return &Region{data: make([]byte, size)}, nil
}

// Commit is a no-op; fallback memory is always accessible.
func (r *Region) Commit(addr, n uintptr) error {
	_, err := r.slice(addr, n)
	return err
}

// Decommit zeroes the range so reuse matches the mmap contract.
func (r *Region) Decommit(addr, n uintptr) error {
	b, err := r.slice(addr, n)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}

// Release drops the backing slice.
func (r *Region) Release() error {
	r.data = nil
	return nil
}
