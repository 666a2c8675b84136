package containers

import "testing"

func TestRingQueue(t *testing.T) {
	rq := NewRingQueue[uint32](3)
	if !rq.IsEmpty() {
		t.Fatal("RingQueue.IsEmpty: new queue is not empty")
	}
	if _, err := rq.Dequeue(); err != ErrQueueEmpty {
		t.Fatalf("RingQueue.Dequeue on empty queue:\nhave %v\nwant %v", err, ErrQueueEmpty)
	}
	for i := uint32(0); i < 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("RingQueue.Enqueue(%d): %v", i, err)
		}
	}
	if err := rq.Enqueue(3); err != ErrQueueFull {
		t.Fatalf("RingQueue.Enqueue on full queue:\nhave %v\nwant %v", err, ErrQueueFull)
	}

	// Wrap around.
	if v, _ := rq.Dequeue(); v != 0 {
		t.Fatalf("RingQueue.Dequeue:\nhave %v\nwant 0", v)
	}
	if err := rq.Enqueue(3); err != nil {
		t.Fatalf("RingQueue.Enqueue after Dequeue: %v", err)
	}
	for _, want := range []uint32{1, 2, 3} {
		v, err := rq.Dequeue()
		if err != nil || v != want {
			t.Fatalf("RingQueue.Dequeue:\nhave %v, %v\nwant %v, nil", v, err, want)
		}
	}
	if rq.Len() != 0 {
		t.Fatalf("RingQueue.Len:\nhave %v\nwant 0", rq.Len())
	}
}
