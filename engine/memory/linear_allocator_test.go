package memory

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/spaghettifunk/renderqueue/engine/core"
)

func TestAllocateAlignment(t *testing.T) {
	a := NewLinearAllocator(256)
	for _, align := range [...]int{1, 2, 4, 8, 16, 32} {
		// Misalign the cursor first.
		if _, err := a.Allocate(1, 1); err != nil {
			t.Fatalf("Allocate(1, 1): %v", err)
		}
		p, err := a.Allocate(4, align)
		if err != nil {
			t.Fatalf("Allocate(4, %d): %v", align, err)
		}
		if uintptr(p)%uintptr(align) != 0 {
			t.Fatalf("Allocate(4, %d):\nhave address %#x\nwant multiple of %d", align, uintptr(p), align)
		}
	}
}

func TestAllocateInvalidAlignment(t *testing.T) {
	a := NewLinearAllocator(64)
	for _, align := range [...]int{0, -8, 3, 12} {
		if _, err := a.Allocate(8, align); !errors.Is(err, core.ErrInvalidAlignment) {
			t.Fatalf("Allocate(8, %d):\nhave %v\nwant %v", align, err, core.ErrInvalidAlignment)
		}
	}
}

func TestOutOfSpace(t *testing.T) {
	a := NewLinearAllocator(32)
	if _, err := a.Allocate(32, 8); err != nil {
		t.Fatalf("Allocate(32, 8): %v", err)
	}
	if _, err := a.Allocate(1, 1); !errors.Is(err, core.ErrOutOfArenaSpace) {
		t.Fatalf("Allocate past the end:\nhave %v\nwant %v", err, core.ErrOutOfArenaSpace)
	}
	if a.Remaining() != 0 {
		t.Fatalf("Remaining:\nhave %d\nwant 0", a.Remaining())
	}

	// A failed allocation leaves the cursor untouched.
	b := NewLinearAllocator(16)
	b.Allocate(4, 4)
	off := b.Offset()
	if _, err := b.Allocate(16, 4); err == nil {
		t.Fatal("Allocate(16, 4): have nil error")
	}
	if b.Offset() != off {
		t.Fatalf("Offset after failure:\nhave %d\nwant %d", b.Offset(), off)
	}
}

func TestPointerStability(t *testing.T) {
	a := NewLinearAllocator(1024)
	var ptrs []*uint64
	for i := uint64(0); i < 64; i++ {
		p, err := a.Allocate(8, 8)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		v := (*uint64)(p)
		*v = i * 3
		ptrs = append(ptrs, v)
	}
	for i, p := range ptrs {
		if *p != uint64(i)*3 {
			t.Fatalf("value %d:\nhave %d\nwant %d", i, *p, i*3)
		}
	}
}

func TestWindowAndReset(t *testing.T) {
	a := NewLinearAllocator(128)
	a.SetWindow(64, 128)
	off, err := a.AllocateOffset(16, 8)
	if err != nil {
		t.Fatalf("AllocateOffset: %v", err)
	}
	if off != 64 {
		t.Fatalf("AllocateOffset in window:\nhave %d\nwant 64", off)
	}
	if _, err := a.AllocateOffset(64, 8); !errors.Is(err, core.ErrOutOfArenaSpace) {
		t.Fatalf("AllocateOffset past window:\nhave %v\nwant %v", err, core.ErrOutOfArenaSpace)
	}
	a.Reset(64)
	if a.Remaining() != 64 {
		t.Fatalf("Remaining after Reset:\nhave %d\nwant 64", a.Remaining())
	}

	// Reset does not clear memory.
	p := a.Pointer(64)
	*(*uint32)(p) = 0xdeadbeef
	a.Reset(64)
	if *(*uint32)(a.Pointer(64)) != 0xdeadbeef {
		t.Fatal("Reset cleared memory")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Reset outside window: did not panic")
		}
	}()
	a.Reset(0)
}

func TestOffsetOf(t *testing.T) {
	a := NewLinearAllocator(64)
	p, _ := a.Allocate(8, 8)
	off, ok := a.OffsetOf(p)
	if !ok || off != 0 {
		t.Fatalf("OffsetOf:\nhave %d, %v\nwant 0, true", off, ok)
	}
	if _, ok := a.OffsetOf(unsafe.Add(p, 16)); ok {
		t.Fatal("OffsetOf past the cursor: have true")
	}
	var x uint64
	if _, ok := a.OffsetOf(unsafe.Pointer(&x)); ok {
		t.Fatal("OffsetOf foreign pointer: have true")
	}
}

func TestBytes(t *testing.T) {
	a := NewLinearAllocator(16)
	off, _ := a.AllocateOffset(4, 1)
	b := a.Bytes(off, 4)
	copy(b, []byte{1, 2, 3, 4})
	if have := a.Bytes(off, 4); have[3] != 4 {
		t.Fatalf("Bytes:\nhave %v\nwant [1 2 3 4]", have)
	}
}
