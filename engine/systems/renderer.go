package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/commands"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

// ErrStop ends Run without an error when returned by a ProduceFunc.
var ErrStop = errors.New("stop rendering")

// ProduceFunc records the commands of one frame into the queue's buckets.
type ProduceFunc func(ctx context.Context, frame uint64) error

// RendererSystem owns the command queue and drives it: frame N is dispatched
// to the backend on one goroutine while frame N+1 is produced on another.
type RendererSystem struct {
	backend  renderer.Backend
	registry *resources.Registry
	codec    *keys.Codec
	queue    *commands.CommandQueue

	// Reloaded configurations, applied by the producer between frames.
	changes <-chan *config.Config

	metrics *core.Metrics
	clock   *core.Clock

	mu        sync.Mutex
	lastStats commands.Stats
	total     commands.Stats
}

func NewRendererSystem(backend renderer.Backend, c *config.Config) (*RendererSystem, error) {
	pc, err := c.PacketConfig()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	registry, err := resources.NewRegistry(c.RegistryConfig())
	if err != nil {
		return nil, err
	}
	codec, err := keys.NewCodec(registry)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	queue, err := commands.NewCommandQueue(pc, codec)
	if err != nil {
		return nil, err
	}
	return &RendererSystem{
		backend:  backend,
		registry: registry,
		codec:    codec,
		queue:    queue,
		metrics:  core.NewMetrics(),
		clock:    core.NewClock(),
	}, nil
}

func (r *RendererSystem) Backend() renderer.Backend {
	return r.backend
}

func (r *RendererSystem) Registry() *resources.Registry {
	return r.registry
}

func (r *RendererSystem) Codec() *keys.Codec {
	return r.codec
}

func (r *RendererSystem) Queue() *commands.CommandQueue {
	return r.queue
}

func (r *RendererSystem) Metrics() *core.Metrics {
	return r.metrics
}

// WatchConfig makes Run apply every configuration received on changes.
func (r *RendererSystem) WatchConfig(changes <-chan *config.Config) {
	r.changes = changes
}

// ApplyConfig changes the log level and resizes packets from the next frame on.
// It must be called from the producer goroutine.
func (r *RendererSystem) ApplyConfig(c *config.Config) error {
	pc, err := c.PacketConfig()
	if err != nil {
		return err
	}
	if err := r.queue.Reconfigure(pc); err != nil {
		return err
	}
	core.SetLogLevel(c.LogLevel())
	return nil
}

// Stats returns what the last dispatched frame did and the totals since Run started.
func (r *RendererSystem) Stats() (commands.Stats, commands.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats, r.total
}

// Run produces and dispatches frames until ctx is done, produce returns
// ErrStop or an error, or Shutdown is called. A frame already produced is
// still dispatched.
func (r *RendererSystem) Run(ctx context.Context, produce ProduceFunc) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer r.queue.Close()
		for {
			if ctx.Err() != nil {
				return nil
			}
			r.pollConfig()

			frame := r.queue.Sync().Frame() + 1
			if err := produce(ctx, frame); err != nil {
				if errors.Is(err, ErrStop) {
					core.LogInfo("producer stopped at frame %d", frame)
					return nil
				}
				return fmt.Errorf("frame %d: %w", frame, err)
			}
			if _, ok := r.queue.Swap(); !ok {
				return nil
			}
		}
	})

	g.Go(func() error {
		r.clock.Start()
		last := r.clock.Elapsed()
		for {
			stats, ok := r.queue.Dispatch(r.backend)
			if !ok {
				return nil
			}
			r.clock.Update()
			now := r.clock.Elapsed()
			r.metrics.Update(now - last)
			last = now

			r.mu.Lock()
			r.lastStats = stats
			r.total.Add(stats)
			r.mu.Unlock()

			if frames := r.metrics.Frames(); frames%120 == 0 {
				fps, ms := r.metrics.Frame()
				core.LogDebug("frame %d: %.1f fps, %.3f ms, %d dispatched, %d skipped", frames, fps, ms, stats.Dispatched, stats.Skipped)
			}
		}
	})

	return g.Wait()
}

func (r *RendererSystem) pollConfig() {
	if r.changes == nil {
		return
	}
	select {
	case c, ok := <-r.changes:
		if !ok {
			r.changes = nil
			return
		}
		if err := r.ApplyConfig(c); err != nil {
			core.LogError("renderer: ignoring configuration: %s", err)
		}
	default:
	}
}

// Shutdown stops Run.
func (r *RendererSystem) Shutdown() error {
	r.queue.Close()
	return nil
}
