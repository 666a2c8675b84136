package systems

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/commands"
	"github.com/spaghettifunk/renderqueue/engine/renderer/debug"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

type scene struct {
	rt, shader, vs, mat resources.Handle
	bucket              *commands.CommandBucket
}

func newRenderer(t *testing.T, c *config.Config) (*RendererSystem, *debug.Recorder, *scene) {
	t.Helper()
	rec := debug.NewRecorder()
	r, err := NewRendererSystem(rec, c)
	if err != nil {
		t.Fatalf("NewRendererSystem: %v", err)
	}
	reg := r.Registry()
	s := &scene{}
	s.rt, _ = reg.RegisterRenderTarget(&resources.RenderTarget{Name: "backbuffer"})
	s.shader, _ = reg.RegisterShader(&resources.Shader{Name: "lit"})
	s.vs, _ = reg.RegisterVertexSource(&resources.VertexSource{Name: "cube"})
	s.mat, err = reg.RegisterMaterial(&resources.Material{Name: "stone", Shader: s.shader, State: resources.DefaultRenderState})
	if err != nil {
		t.Fatalf("RegisterMaterial: %v", err)
	}
	s.bucket, err = r.Queue().CreateBucket("world")
	if err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	return r, rec, s
}

func (s *scene) draw(n int) error {
	for i := 0; i < n; i++ {
		cmd, err := commands.CreateStateCommand[commands.DrawCmd](s.bucket, 0, s.rt, s.vs, s.mat)
		if err != nil {
			return err
		}
		cmd.VertexCount = 36
		cmd.InstanceCount = 1
	}
	return nil
}

func TestRendererSystemRun(t *testing.T) {
	const frames, draws = 20, 8
	r, rec, s := newRenderer(t, config.Default())

	err := r.Run(context.Background(), func(ctx context.Context, frame uint64) error {
		if frame > frames {
			return ErrStop
		}
		return s.draw(draws)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	last, total := r.Stats()
	if total.Dispatched != frames*draws || last.Dispatched != draws {
		t.Fatalf("Stats:\nhave last %+v total %+v\nwant %d per frame, %d total", last, total, draws, frames*draws)
	}
	// One bind of each kind per frame.
	if total.ShaderBinds != frames || total.MaterialBinds != frames {
		t.Fatalf("binds:\nhave %+v\nwant %d of each", total, frames)
	}
	if n := r.Metrics().Frames(); n != frames {
		t.Fatalf("Metrics().Frames:\nhave %d\nwant %d", n, frames)
	}
	if n := rec.Count("BeginFrame"); n != frames {
		t.Fatalf("BeginFrame calls:\nhave %d\nwant %d", n, frames)
	}
}

func TestRendererSystemProduceError(t *testing.T) {
	r, _, s := newRenderer(t, config.Default())
	boom := errors.New("boom")
	err := r.Run(context.Background(), func(ctx context.Context, frame uint64) error {
		if frame == 3 {
			return boom
		}
		return s.draw(1)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run:\nhave %v\nwant %v", err, boom)
	}
	if _, total := r.Stats(); total.Dispatched != 2 {
		t.Fatalf("Dispatched:\nhave %d\nwant 2", total.Dispatched)
	}
}

func TestRendererSystemCancel(t *testing.T) {
	r, _, s := newRenderer(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := r.Run(ctx, func(ctx context.Context, frame uint64) error {
		if frame == 5 {
			cancel()
		}
		return s.draw(1)
	})
	if err != nil {
		t.Fatalf("Run:\nhave %v\nwant nil", err)
	}
	// The frame produced while cancelling is still dispatched.
	if _, total := r.Stats(); total.Dispatched != 5 {
		t.Fatalf("Dispatched:\nhave %d\nwant 5", total.Dispatched)
	}
}

func TestRendererSystemApplyConfig(t *testing.T) {
	r, _, s := newRenderer(t, config.Default())
	changes := make(chan *config.Config, 1)
	r.WatchConfig(changes)

	small := config.Default()
	small.Pipeline.PacketCapacity = 2
	err := r.Run(context.Background(), func(ctx context.Context, frame uint64) error {
		switch frame {
		case 1:
			changes <- small
			return s.draw(4)
		case 2:
			// Applied before this frame, effective after its swap.
			return s.draw(4)
		case 3:
			if err := s.draw(3); !errors.Is(err, core.ErrPacketFull) {
				t.Errorf("draw past new capacity:\nhave %v\nwant %v", err, core.ErrPacketFull)
			}
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, total := r.Stats(); total.Dispatched != 8 {
		t.Fatalf("Dispatched:\nhave %d\nwant 8", total.Dispatched)
	}
}

func TestNewRendererSystemInvalidConfig(t *testing.T) {
	c := config.Default()
	c.Pipeline.PacketCapacity = 0
	if _, err := NewRendererSystem(debug.NewRecorder(), c); err == nil {
		t.Fatal("NewRendererSystem:\nhave nil error\nwant error")
	}
	c = config.Default()
	c.Registry.MaxRenderTargets = 1 << 12
	if _, err := NewRendererSystem(debug.NewRecorder(), c); err == nil {
		t.Fatal("NewRendererSystem with too many render targets:\nhave nil error\nwant error")
	}
}
