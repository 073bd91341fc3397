// Package frametransport holds transport-family helpers that concrete
// backends (external to this module, per spec.md §6) can build on. The
// frame-grabber family backs its ring buffer's arena with a single DMA
// region mapped once at startup, the way periph.io/x/host/pmem maps
// physical GPIO/device memory with a single mmap and hands out slices
// into it rather than copying.
package frametransport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DMARegion is a memory-mapped byte arena modeling a frame-grabber's
// DMA-mapped ring segment (e.g. a PCIe BAR or a /dev/mem window a
// vendor driver exposes for contiguous DMA). Backends use it as the
// backing store for frames they hand the acquisition driver through
// ringbuffer.RingBuffer.WritePtr — copying device-owned memory into
// the ring, never retaining a reference to this region past the copy
// (spec.md §5, "no zero-copy escape of device-owned memory").
type DMARegion struct {
	data []byte
}

// MapFile maps size bytes of fd at offset, the way pmem.mapLinux maps
// /dev/mem. The caller owns fd and is responsible for closing it;
// MapFile only needs it open long enough to perform the mmap syscall.
func MapFile(fd uintptr, offset int64, size int) (*DMARegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("frametransport: size must be > 0, got %d", size)
	}
	b, err := unix.Mmap(int(fd), offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("frametransport: mmap at offset %d size %d: %w", offset, size, err)
	}
	return &DMARegion{data: b}, nil
}

// MapAnonymous creates a size-byte anonymous mapping, used by the
// camtest frame-grabber fake and by tests that need a DMARegion
// without a real device file backing it.
func MapAnonymous(size int) (*DMARegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("frametransport: size must be > 0, got %d", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("frametransport: anonymous mmap size %d: %w", size, err)
	}
	return &DMARegion{data: b}, nil
}

// Slice returns the i-th fixed-size block view into the region. The
// returned slice aliases device/mapped memory directly; callers must
// copy out of it before returning control to anything that might
// reuse or unmap the region.
func (r *DMARegion) Slice(blockSize, i int) ([]byte, error) {
	start := i * blockSize
	end := start + blockSize
	if start < 0 || end > len(r.data) {
		return nil, fmt.Errorf("frametransport: block %d (size %d) out of bounds for region of %d bytes", i, blockSize, len(r.data))
	}
	return r.data[start:end], nil
}

// Len returns the total mapped size in bytes.
func (r *DMARegion) Len() int { return len(r.data) }

// Close unmaps the region. The mapping is otherwise released by the
// kernel on process exit, same caveat as pmem.View.Close.
func (r *DMARegion) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
