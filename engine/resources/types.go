package resources

type ClearFlags uint8

const (
	ClearNone          ClearFlags = 0x0
	ClearColourBuffer  ClearFlags = 0x1
	ClearDepthBuffer   ClearFlags = 0x2
	ClearStencilBuffer ClearFlags = 0x4
)

// RenderTarget describes a framebuffer the backend renders into.
type RenderTarget struct {
	Name string
	// Backend framebuffer identifier.
	Framebuffer uint32
	Width       uint32
	Height      uint32
	ClearColour [4]float32
	ClearFlags  ClearFlags
}

type Shader struct {
	Name string
	// Backend program identifier.
	Program uint32
}

// VertexSource is a bound set of vertex and (optional) index buffers.
type VertexSource struct {
	Name         string
	VertexBuffer uint32
	IndexBuffer  uint32
	VertexCount  uint32
	IndexCount   uint32
}

type Material struct {
	Name   string
	Shader Handle
	State  RenderState
	// Uniform values uploaded when the material becomes current.
	DiffuseColour [4]float32
	Shininess     float32
	Textures      []uint32
}
