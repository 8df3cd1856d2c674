//go:build unix

package mmap

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve maps size bytes of anonymous address space with no access rights.
// Pages become usable only after Commit, so a large reservation costs only
// virtual address space.
func Reserve(size uintptr) (*Region, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap: reserve %d bytes: %w", size, err)
	}
	return &Region{data: data}, nil
}

// Map returns size bytes of zeroed, immediately usable anonymous memory.
func Map(size uintptr) (*Region, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %d bytes: %w", size, err)
	}
	return &Region{data: data}, nil
}

// Commit makes [addr, addr+n) readable and writable. The range must be
// page-aligned and inside the region.
func (r *Region) Commit(addr, n uintptr) error {
	b, err := r.slice(addr, n)
	if err != nil {
		return err
	}
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("mmap: commit %d bytes: %w", n, err)
	}
	return nil
}

// Decommit tells the OS the pages in [addr, addr+n) hold no useful data.
// The range stays mapped and readable; the next touch observes zero pages.
func (r *Region) Decommit(addr, n uintptr) error {
	b, err := r.slice(addr, n)
	if err != nil {
		return err
	}
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("mmap: decommit %d bytes: %w", n, err)
	}
	return nil
}

// Release unmaps the region. Safe to call twice.
func (r *Region) Release() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	if err := unix.Munmap(data); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return fmt.Errorf("mmap: release: %w", err)
	}
	return nil
}
