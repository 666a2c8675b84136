package resources

import (
	"fmt"

	"github.com/google/uuid"
)

// Handle is an engine-wide unique identifier of a GPU side resource.
type Handle uuid.UUID

// NilHandle is never assigned to a resource.
var NilHandle Handle

func NewHandle() Handle {
	return Handle(uuid.New())
}

// ParseHandle reads the textual form produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilHandle, err
	}
	return Handle(id), nil
}

func (h Handle) String() string {
	return uuid.UUID(h).String()
}

func (h Handle) IsNil() bool {
	return h == NilHandle
}

// Index is the dense per category number a handle is compressed into.
type Index uint32

// InvalidIndex is distinct from every index the registry hands out.
const InvalidIndex Index = ^Index(0)

type Category uint8

const (
	CategoryRenderTarget Category = iota
	CategoryShader
	CategoryVertexSource
	CategoryMaterial
	CategoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryRenderTarget:
		return "render target"
	case CategoryShader:
		return "shader"
	case CategoryVertexSource:
		return "vertex source"
	case CategoryMaterial:
		return "material"
	default:
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
}
