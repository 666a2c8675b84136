package memory

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/renderqueue/engine/core"
)

// LinearAllocator hands out memory from a fixed buffer by advancing a cursor.
// Allocations are never moved and are only released in bulk by Reset.
//
// The buffer is not scanned by the garbage collector for pointers, so only
// pointer-free data may be stored in it.
type LinearAllocator struct {
	backing []uint64
	start   unsafe.Pointer
	size    int

	// current window
	base   int
	limit  int
	offset int
}

// NewLinearAllocator reserves size bytes. The start of the buffer is 8 byte aligned.
func NewLinearAllocator(size int) *LinearAllocator {
	if size < 0 {
		size = 0
	}
	backing := make([]uint64, (size+7)/8)
	var start unsafe.Pointer
	if len(backing) > 0 {
		start = unsafe.Pointer(unsafe.SliceData(backing))
	}
	return &LinearAllocator{
		backing: backing,
		start:   start,
		size:    size,
		limit:   size,
	}
}

// Allocate returns a pointer to size bytes aligned to alignment.
func (a *LinearAllocator) Allocate(size, alignment int) (unsafe.Pointer, error) {
	off, err := a.AllocateOffset(size, alignment)
	if err != nil {
		return nil, err
	}
	return unsafe.Add(a.start, off), nil
}

// AllocateOffset is Allocate returning the offset from the start of the buffer.
func (a *LinearAllocator) AllocateOffset(size, alignment int) (int, error) {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return 0, fmt.Errorf("%w: %d", core.ErrInvalidAlignment, alignment)
	}
	if size < 0 {
		return 0, fmt.Errorf("linear allocator: negative allocation size %d", size)
	}
	// Zero sized requests still take a byte so every pointer stays inside the buffer.
	if size == 0 {
		size = 1
	}
	padding := calculatePadding(uintptr(a.start)+uintptr(a.offset), uintptr(alignment))
	if a.offset+padding+size > a.limit {
		return 0, fmt.Errorf("%w: requested %d bytes (+%d padding), %d remaining", core.ErrOutOfArenaSpace, size, padding, a.limit-a.offset)
	}
	off := a.offset + padding
	a.offset = off + size
	return off, nil
}

// SetWindow restricts further allocations to [start, end) and moves the cursor to start.
func (a *LinearAllocator) SetWindow(start, end int) {
	if start < 0 || start > end || end > a.size {
		panic(fmt.Sprintf("linear allocator: invalid window [%d, %d) for size %d", start, end, a.size))
	}
	a.base = start
	a.limit = end
	a.offset = start
}

// Reset moves the cursor back to offset. Memory is not cleared.
func (a *LinearAllocator) Reset(offset int) {
	if offset < a.base || offset > a.limit {
		panic(fmt.Sprintf("linear allocator: reset offset %d outside window [%d, %d)", offset, a.base, a.limit))
	}
	a.offset = offset
}

// Pointer returns the address of the byte at offset.
func (a *LinearAllocator) Pointer(offset int) unsafe.Pointer {
	if offset < 0 || offset >= a.size {
		panic(fmt.Sprintf("linear allocator: offset %d out of range", offset))
	}
	return unsafe.Add(a.start, offset)
}

// Bytes returns n bytes starting at offset.
func (a *LinearAllocator) Bytes(offset, n int) []byte {
	if n == 0 {
		return nil
	}
	if offset < 0 || n < 0 || offset+n > a.size {
		panic(fmt.Sprintf("linear allocator: range [%d, %d) out of range", offset, offset+n))
	}
	return unsafe.Slice((*byte)(unsafe.Add(a.start, offset)), n)
}

// OffsetOf returns the offset of p, or false when p does not point into the current window.
func (a *LinearAllocator) OffsetOf(p unsafe.Pointer) (int, bool) {
	if a.start == nil || p == nil {
		return 0, false
	}
	d := int(uintptr(p) - uintptr(a.start))
	if uintptr(p) < uintptr(a.start) || d < a.base || d >= a.offset {
		return 0, false
	}
	return d, true
}

func (a *LinearAllocator) Offset() int    { return a.offset }
func (a *LinearAllocator) Size() int      { return a.size }
func (a *LinearAllocator) Remaining() int { return a.limit - a.offset }

func calculatePadding(addr, alignment uintptr) int {
	mod := addr & (alignment - 1)
	if mod == 0 {
		return 0
	}
	return int(alignment - mod)
}
