package commands

import (
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/debug"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

func TestMain(m *testing.M) {
	// Failure paths log on purpose.
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

// fixture registers n resources per category, named rt0, sh0, vs0, mat0, ...
// Resource i of a category has compressed index i.
type fixture struct {
	registry *resources.Registry
	codec    *keys.Codec
	rts      []resources.Handle
	shaders  []resources.Handle
	vss      []resources.Handle
	mats     []resources.Handle
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	r, err := resources.NewRegistry(&resources.RegistryConfig{
		MaxRenderTargetCount: 16,
		MaxShaderCount:       16,
		MaxVertexSourceCount: 16,
		MaxMaterialCount:     16,
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c, err := keys.NewCodec(r)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	f := &fixture{registry: r, codec: c}
	for i := 0; i < n; i++ {
		rt, err := r.RegisterRenderTarget(&resources.RenderTarget{Name: fmt.Sprintf("rt%d", i), Width: 1280, Height: 720})
		if err != nil {
			t.Fatalf("RegisterRenderTarget: %v", err)
		}
		sh, _ := r.RegisterShader(&resources.Shader{Name: fmt.Sprintf("sh%d", i)})
		vs, _ := r.RegisterVertexSource(&resources.VertexSource{Name: fmt.Sprintf("vs%d", i)})
		f.rts = append(f.rts, rt)
		f.shaders = append(f.shaders, sh)
		f.vss = append(f.vss, vs)
	}
	for i := 0; i < n; i++ {
		m, err := r.RegisterMaterial(&resources.Material{
			Name:   fmt.Sprintf("mat%d", i),
			Shader: f.shaders[i],
			State:  resources.DefaultRenderState,
		})
		if err != nil {
			t.Fatalf("RegisterMaterial: %v", err)
		}
		f.mats = append(f.mats, m)
	}
	return f
}

func key(priority uint8, rt, sh, vs, mat resources.Index) keys.SortKey {
	return keys.Pack(keys.Fields{Priority: priority, RenderTarget: rt, Shader: sh, VertexSource: vs, Material: mat})
}

func newPacket(t *testing.T, capacity int) *CommandPacket {
	t.Helper()
	p, err := NewCommandPacket(0, PacketConfig{Capacity: capacity, CommandSize: 64})
	if err != nil {
		t.Fatalf("NewCommandPacket: %v", err)
	}
	return p
}

// idCmd dispatches a Draw whose vertex count is its id, so tests can follow
// commands through the backend.
type idCmd struct {
	ID uint32
}

func (c *idCmd) Dispatch(backend renderer.Backend) {
	backend.Draw(c.ID, 1, 0, 0)
}

// hookCmd runs testHook when dispatched.
type hookCmd struct{}

var testHook func()

func (c *hookCmd) Dispatch(backend renderer.Backend) {
	testHook()
}

// stringCmd is not a valid payload.
type stringCmd struct {
	Label string
}

func (c *stringCmd) Dispatch(backend renderer.Backend) {}

// draws returns the vertex counts of the recorded Draw calls.
func draws(r *debug.Recorder) []int64 {
	var ids []int64
	for _, c := range r.Calls() {
		if c.Op == "Draw" {
			ids = append(ids, c.Args[0])
		}
	}
	return ids
}
