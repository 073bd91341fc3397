// Package ringbuffer implements the bounded, block-structured frame
// queue that sits between a camera backend and client code: a single
// producer appends fixed-size blocks, a single consumer drains them in
// FIFO order, and any number of readers may index into the retained
// window while the producer is quiesced.
//
// The buffer is allocated once and never resized; overwrite-on-full is
// the only semantics (see Open Questions in SPEC_FULL.md).
package ringbuffer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sigurn/crc16"
)

// Block is one fixed-size frame slot in the arena.
type Block []byte

var cksumTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// RingBuffer is a bounded FIFO of fixed-size blocks backed by a single
// contiguous arena, addressed with two monotonically increasing
// counters (writeIndex, readIndex) the way a lock-free SPSC queue is
// built: the physical slot is always index mod capacity.
type RingBuffer struct {
	blockSize int
	capacity  int
	arena     []byte

	// mu guards the counters and the checksum slice. The producer and
	// consumer are meant to be lock-free per SPEC_FULL.md's concurrency
	// model, but camcore favors the teacher's mutex-first style
	// (sync.RWMutex everywhere in hub.go/dvr.go) over hand-rolled
	// atomics for the multi-field counter pair; writeIndex alone is
	// additionally exposed as an atomic so peek_ptr can be read without
	// blocking a concurrent writer.
	mu         sync.RWMutex
	writeIndex uint64
	readIndex  uint64

	writeIndexAtomic atomic.Uint64

	checksums []uint16
	haveCksum []bool
}

// New allocates a zero-initialized ring buffer. capacity and blockSize
// must both be strictly positive.
func New(blockSize, capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, errInvalid("capacity must be > 0, got %d", capacity)
	}
	if blockSize <= 0 {
		return nil, errInvalid("blockSize must be > 0, got %d", blockSize)
	}
	rb := &RingBuffer{
		blockSize: blockSize,
		capacity:  capacity,
		arena:     make([]byte, blockSize*capacity),
		checksums: make([]uint16, capacity),
		haveCksum: make([]bool, capacity),
	}
	return rb, nil
}

// BlockSize returns the fixed size of every block in bytes.
func (rb *RingBuffer) BlockSize() int { return rb.blockSize }

// Capacity returns the number of blocks the arena holds.
func (rb *RingBuffer) Capacity() int { return rb.capacity }

// Reset restores the empty state without reallocating the arena. The
// caller must guarantee no producer is concurrently advancing.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.writeIndex = 0
	rb.readIndex = 0
	rb.writeIndexAtomic.Store(0)
	for i := range rb.haveCksum {
		rb.haveCksum[i] = false
	}
}

func (rb *RingBuffer) slot(index uint64) []byte {
	phys := int(index % uint64(rb.capacity))
	start := phys * rb.blockSize
	return rb.arena[start : start+rb.blockSize]
}

// WritePtr returns a writable reference to the next producer slot. The
// caller fills it in place and then calls WriteAdvance. When the buffer
// is full the slot returned is the oldest retained block, which
// WriteAdvance will implicitly overwrite.
func (rb *RingBuffer) WritePtr() Block {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.slot(rb.writeIndex)
}

// WriteAdvance commits the block last returned by WritePtr. If the
// buffer was already full, the read cursor is advanced so positional
// access continues to refer to the most recent Capacity blocks.
func (rb *RingBuffer) WriteAdvance() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	phys := int(rb.writeIndex % uint64(rb.capacity))
	rb.checksums[phys] = crc16.Checksum(rb.arena[phys*rb.blockSize:(phys+1)*rb.blockSize], cksumTable)
	rb.haveCksum[phys] = true

	rb.writeIndex++
	rb.writeIndexAtomic.Store(rb.writeIndex)
	if rb.writeIndex-rb.readIndex > uint64(rb.capacity) {
		rb.readIndex = rb.writeIndex - uint64(rb.capacity)
	}
}

// ReadPtr returns a readable reference to the oldest unread block and
// advances the read cursor. It returns ok=false when the buffer is
// empty (the Empty case from SPEC_FULL.md §4.2).
func (rb *RingBuffer) ReadPtr() (block Block, ok bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.readIndex >= rb.writeIndex {
		return nil, false
	}
	b := rb.slot(rb.readIndex)
	rb.readIndex++
	return b, true
}

// PeekPtr returns a reference to the most recently committed block
// (slot 0 before any write) without advancing anything, used to
// display the "latest" frame during preview (the streamer package's
// fan-out source). It reads only writeIndexAtomic and takes no lock.
func (rb *RingBuffer) PeekPtr() Block {
	idx := rb.writeIndexAtomic.Load()
	if idx == 0 {
		return rb.slot(0)
	}
	return rb.slot(idx - 1)
}

// GetPtr returns a reference to the i-th oldest retained block. i is
// relative to the current retention window, not an absolute write
// index: GetPtr(0) is always the oldest block still held.
func (rb *RingBuffer) GetPtr(i int) (Block, error) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	n := rb.numBlocksLocked()
	if i < 0 || i >= n {
		return nil, errInvalid("index %d out of range [0,%d)", i, n)
	}
	oldest := rb.writeIndex - uint64(n)
	return rb.slot(oldest + uint64(i)), nil
}

// BlockChecksum returns the CRC-16/XMODEM computed over the i-th oldest
// retained block at the time it was written, for tests that want to
// assert a frame survived ring transit unmodified.
func (rb *RingBuffer) BlockChecksum(i int) (uint16, error) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	n := rb.numBlocksLocked()
	if i < 0 || i >= n {
		return 0, errInvalid("index %d out of range [0,%d)", i, n)
	}
	oldest := rb.writeIndex - uint64(n)
	phys := int((oldest + uint64(i)) % uint64(rb.capacity))
	if !rb.haveCksum[phys] {
		return 0, errInvalid("no checksum recorded for slot %d", phys)
	}
	return rb.checksums[phys], nil
}

// NumBlocks returns the currently retained count, clamped to capacity.
func (rb *RingBuffer) NumBlocks() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.numBlocksLocked()
}

func (rb *RingBuffer) numBlocksLocked() int {
	n := rb.writeIndex - rb.readIndex
	if n > uint64(rb.capacity) {
		n = uint64(rb.capacity)
	}
	return int(n)
}

// Available reports whether at least one unread block exists.
func (rb *RingBuffer) Available() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.readIndex < rb.writeIndex
}

func errInvalid(format string, args ...any) error {
	return invalidArgError{msg: fmt.Sprintf(format, args...)}
}

type invalidArgError struct{ msg string }

func (e invalidArgError) Error() string { return "ringbuffer: " + e.msg }
