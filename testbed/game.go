package testbed

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/spaghettifunk/renderqueue/engine"
	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/commands"
	"github.com/spaghettifunk/renderqueue/engine/resources"
	"github.com/spaghettifunk/renderqueue/engine/systems"
)

const (
	modelMatrixLocation = 0

	uiPriority = 0
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	settings config.TestbedConfig
	random   *rand.Rand

	renderTargets []resources.Handle
	shaders       []resources.Handle
	vertexSources []resources.Handle
	materials     []resources.Handle
	uiMaterial    resources.Handle

	world *commands.CommandBucket
	ui    *commands.CommandBucket

	elapsed float64
}

// NewTestGame builds a game that records a random scene every frame: shuffled
// draws over a pool of materials, a few of them transparent, plus a UI pass.
func NewTestGame(app *engine.ApplicationConfig, settings config.TestbedConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				settings: settings,
				random:   rand.New(rand.NewSource(settings.Seed)),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(r *systems.RendererSystem) error {
	core.LogInfo("initializing testbed...")
	state := g.State.(*gameState)
	reg := r.Registry()

	for i, name := range []string{"gbuffer", "backbuffer"} {
		h, err := reg.RegisterRenderTarget(&resources.RenderTarget{
			Name:        name,
			Framebuffer: uint32(i),
			Width:       1280,
			Height:      720,
			ClearColour: [4]float32{0.0, 0.0, 0.2, 1.0},
			ClearFlags:  resources.ClearColourBuffer | resources.ClearDepthBuffer,
		})
		if err != nil {
			return err
		}
		state.renderTargets = append(state.renderTargets, h)
	}
	for i, name := range []string{"Shader.Builtin.Material", "Shader.Builtin.Skinned", "Shader.Builtin.UI"} {
		h, err := reg.RegisterShader(&resources.Shader{Name: name, Program: uint32(i + 1)})
		if err != nil {
			return err
		}
		state.shaders = append(state.shaders, h)
	}
	for i, mesh := range []struct {
		name    string
		indices uint32
	}{{"cube", 36}, {"sphere", 2880}, {"plane", 6}, {"sponza", 786801}} {
		h, err := reg.RegisterVertexSource(&resources.VertexSource{
			Name:         mesh.name,
			VertexBuffer: uint32(2*i + 1),
			IndexBuffer:  uint32(2*i + 2),
			IndexCount:   mesh.indices,
		})
		if err != nil {
			return err
		}
		state.vertexSources = append(state.vertexSources, h)
	}

	for i := 0; i < state.settings.Materials; i++ {
		m := &resources.Material{
			Name:          fmt.Sprintf("material_%03d", i),
			Shader:        state.shaders[i%2],
			State:         resources.DefaultRenderState,
			DiffuseColour: [4]float32{1, 1, 1, 1},
			Shininess:     32,
		}
		// Every eighth material is glass.
		if i%8 == 7 {
			m.State = resources.TransparentRenderState
			m.DiffuseColour[3] = 0.4
		}
		h, err := reg.RegisterMaterial(m)
		if err != nil {
			return err
		}
		state.materials = append(state.materials, h)
	}
	ui, err := reg.RegisterMaterial(&resources.Material{
		Name:   "Material.Builtin.UI",
		Shader: state.shaders[2],
		State:  resources.TransparentRenderState,
	})
	if err != nil {
		return err
	}
	state.uiMaterial = ui

	if state.world, err = r.Queue().CreateBucket("world"); err != nil {
		return err
	}
	if state.ui, err = r.Queue().CreateBucket("ui"); err != nil {
		return err
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	return nil
}

func (g *TestGame) Render(frame uint64) error {
	state := g.State.(*gameState)
	if state.settings.Frames > 0 && frame > uint64(state.settings.Frames) {
		return systems.ErrStop
	}
	if len(state.materials) == 0 {
		return fmt.Errorf("testbed has no materials")
	}

	for i := 0; i < state.settings.DrawsPerFrame; i++ {
		material := state.materials[state.random.Intn(len(state.materials))]
		vertexSource := state.vertexSources[state.random.Intn(len(state.vertexSources))]
		target := state.renderTargets[state.random.Intn(len(state.renderTargets))]
		priority := uint8(state.random.Intn(4))

		model, err := commands.CreateStateCommand[commands.UniformMat4Cmd](state.world, priority, target, vertexSource, material)
		if err != nil {
			// Reported by the bucket, a full packet drops the rest of the frame.
			break
		}
		model.Location = modelMatrixLocation
		model.Value = translation(float32(i%32)*2, 0, float32(i/32)*2)

		// Chained commands run after their parent, so the draw sees this matrix.
		cmd, err := commands.ChainCommand[commands.DrawIndexedCmd](state.world, model)
		if err != nil {
			continue
		}
		cmd.IndexCount = 36
		cmd.InstanceCount = 1
	}

	// UI on the backbuffer, clipped to a panel.
	backbuffer := state.renderTargets[len(state.renderTargets)-1]
	panel, err := commands.CreateStateCommand[commands.ScissorCmd](state.ui, uiPriority, backbuffer, state.vertexSources[2], state.uiMaterial)
	if err != nil {
		return nil
	}
	*panel = commands.ScissorCmd{X: 16, Y: 16, Width: 320, Height: 180}
	if quad, err := commands.ChainCommand[commands.DrawCmd](state.ui, panel); err == nil {
		*quad = commands.DrawCmd{VertexCount: 6, InstanceCount: 1}
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("testbed shutting down after %.2fs", state.elapsed)
	return nil
}

// translation is a column major translation matrix.
func translation(x, y, z float32) [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}
