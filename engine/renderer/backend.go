package renderer

import "github.com/spaghettifunk/renderqueue/engine/resources"

type RendererType uint8

const (
	Vulkan RendererType = iota
	DirectX
	Metal
	OpenGL
	// Records calls instead of talking to a device.
	Null
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	case Null:
		return "null"
	default:
		return "unknown"
	}
}

// Backend turns bound state and dispatched commands into graphics API calls.
// The submission goroutine is the only caller of a Backend.
type Backend interface {
	Type() RendererType
	BeginFrame(frame uint64) error
	EndFrame(frame uint64) error

	// Binds the framebuffer, sets the viewport and clears according to the target's flags.
	BindRenderTarget(target *resources.RenderTarget) error
	BindShader(shader *resources.Shader) error
	BindVertexSource(source *resources.VertexSource) error
	ApplyRenderState(state resources.RenderState) error
	// Uploads the material uniforms to the currently bound shader.
	UploadMaterial(shader *resources.Shader, material *resources.Material) error

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	SetScissor(x, y int32, width, height uint32)
	SetUniformMat4(location uint32, value [16]float32)
}
