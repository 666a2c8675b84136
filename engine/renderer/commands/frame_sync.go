package commands

import (
	"sync"

	"github.com/spaghettifunk/renderqueue/engine/core"
)

type SyncState uint8

const (
	// The producer may submit, nothing is handed to the consumer.
	SyncStateWriting SyncState = iota
	// The consumer owns the swapped out region until DoneReading.
	SyncStateReading
)

func (s SyncState) String() string {
	if s == SyncStateReading {
		return "reading"
	}
	return "writing"
}

// FrameSync hands swapped frames from one producer goroutine to one consumer
// goroutine. A swap blocks until the consumer finished the previous frame.
type FrameSync struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    SyncState
	acquired bool
	frame    uint64
	closed   bool
}

func NewFrameSync() *FrameSync {
	s := &FrameSync{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Swap waits for the consumer to release the previous frame, runs swap while
// holding the lock and hands the new frame over. It returns the frame number,
// or false once the synchronizer is closed.
func (s *FrameSync) Swap(swap func()) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.state == SyncStateReading && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return s.frame, false
	}
	swap()
	s.frame++
	s.state = SyncStateReading
	s.cond.Broadcast()
	return s.frame, true
}

// AcquireRead waits for a swapped frame. It returns false when the
// synchronizer is closed and no frame is pending.
func (s *FrameSync) AcquireRead() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for (s.state != SyncStateReading || s.acquired) && !s.closed {
		s.cond.Wait()
	}
	if s.state != SyncStateReading || s.acquired {
		return s.frame, false
	}
	s.acquired = true
	return s.frame, true
}

// DoneReading releases the frame returned by AcquireRead and wakes the producer.
func (s *FrameSync) DoneReading() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SyncStateReading || !s.acquired {
		core.LogError("FrameSync.DoneReading called without an acquired frame")
		return
	}
	s.acquired = false
	s.state = SyncStateWriting
	s.cond.Broadcast()
}

func (s *FrameSync) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frame is the number of the last swapped frame.
func (s *FrameSync) Frame() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Close wakes both sides. A frame already swapped can still be acquired.
func (s *FrameSync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cond.Broadcast()
}
