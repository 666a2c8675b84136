package commands

import "github.com/spaghettifunk/renderqueue/engine/renderer"

type DrawCmd struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

func (c *DrawCmd) Dispatch(backend renderer.Backend) {
	backend.Draw(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
}

type DrawIndexedCmd struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

func (c *DrawIndexedCmd) Dispatch(backend renderer.Backend) {
	backend.DrawIndexed(c.IndexCount, c.InstanceCount, c.FirstIndex, c.VertexOffset, c.FirstInstance)
}

type ScissorCmd struct {
	X, Y          int32
	Width, Height uint32
}

func (c *ScissorCmd) Dispatch(backend renderer.Backend) {
	backend.SetScissor(c.X, c.Y, c.Width, c.Height)
}

// UniformMat4Cmd uploads a per draw matrix. Chain the draw onto it so the
// matrix is set first.
type UniformMat4Cmd struct {
	Location uint32
	Value    [16]float32
}

func (c *UniformMat4Cmd) Dispatch(backend renderer.Backend) {
	backend.SetUniformMat4(c.Location, c.Value)
}
