package commands

import (
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
)

// CommandQueue owns the buckets of a frame, one per render pass, and hands
// swapped frames from the producer to the submission goroutine.
type CommandQueue struct {
	config  PacketConfig
	pending *PacketConfig
	codec   *keys.Codec
	sync    *FrameSync

	buckets []*CommandBucket
	// Buckets captured by the last Swap, in creation order.
	dispatching []*CommandBucket
}

func NewCommandQueue(config PacketConfig, codec *keys.Codec) (*CommandQueue, error) {
	if err := config.Validate(); err != nil {
		core.LogError("NewCommandQueue - %s", err)
		return nil, err
	}
	return &CommandQueue{
		config: config,
		codec:  codec,
		sync:   NewFrameSync(),
	}, nil
}

// CreateBucket adds a bucket dispatched after every existing one.
func (q *CommandQueue) CreateBucket(name string) (*CommandBucket, error) {
	b, err := NewCommandBucket(name, q.config, q.codec)
	if err != nil {
		return nil, err
	}
	q.buckets = append(q.buckets, b)
	return b, nil
}

func (q *CommandQueue) Bucket(i int) *CommandBucket {
	return q.buckets[i]
}

func (q *CommandQueue) BucketCount() int {
	return len(q.buckets)
}

func (q *CommandQueue) Sync() *FrameSync {
	return q.sync
}

// Reconfigure resizes packets from the next Swap on.
func (q *CommandQueue) Reconfigure(config PacketConfig) error {
	if err := config.Validate(); err != nil {
		core.LogError("CommandQueue.Reconfigure - %s", err)
		return err
	}
	q.pending = &config
	return nil
}

// Swap ends the producer's frame. It blocks until the previous frame was
// dispatched, then hands the commands submitted so far to Dispatch. Commands
// submitted afterwards go to the next frame.
func (q *CommandQueue) Swap() (uint64, bool) {
	return q.sync.Swap(func() {
		for _, b := range q.buckets {
			b.Swap()
		}
		q.dispatching = append(q.dispatching[:0], q.buckets...)

		if q.pending != nil {
			q.config = *q.pending
			q.pending = nil
			for _, b := range q.buckets {
				// Validated in Reconfigure.
				_ = b.Reconfigure(q.config)
			}
			core.LogInfo("command queue reconfigured: capacity=%d command_size=%d policy=%s", q.config.Capacity, q.config.CommandSize, q.config.Policy)
		}
	})
}

// Dispatch waits for a swapped frame and flushes its buckets to the backend.
// It returns false once the queue is closed and every frame was dispatched.
func (q *CommandQueue) Dispatch(backend renderer.Backend) (Stats, bool) {
	var stats Stats
	frame, ok := q.sync.AcquireRead()
	if !ok {
		return stats, false
	}
	defer q.sync.DoneReading()

	if err := backend.BeginFrame(frame); err != nil {
		core.LogError("frame %d: begin frame failed: %s", frame, err)
		return stats, true
	}
	for _, b := range q.dispatching {
		stats.Add(b.Flush(backend))
	}
	if err := backend.EndFrame(frame); err != nil {
		core.LogError("frame %d: end frame failed: %s", frame, err)
	}
	return stats, true
}

// DispatchCommands swaps and dispatches on the calling goroutine.
func (q *CommandQueue) DispatchCommands(backend renderer.Backend) Stats {
	if _, ok := q.Swap(); !ok {
		return Stats{}
	}
	stats, _ := q.Dispatch(backend)
	return stats
}

// Close stops the queue. A frame already swapped is still dispatched.
func (q *CommandQueue) Close() {
	q.sync.Close()
}
