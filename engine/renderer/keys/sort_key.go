package keys

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

// Field widths of a SortKey, most significant first.
const (
	PriorityBits     = 8
	RenderTargetBits = 8
	ShaderBits       = 16
	VertexSourceBits = 16
	MaterialBits     = 16
)

const (
	MaterialShift     = 0
	VertexSourceShift = MaterialShift + MaterialBits
	ShaderShift       = VertexSourceShift + VertexSourceBits
	RenderTargetShift = ShaderShift + ShaderBits
	PriorityShift     = RenderTargetShift + RenderTargetBits

	TotalBits = PriorityShift + PriorityBits
)

// The fields must fit a uint64, this fails to compile otherwise.
const _ = uint8(64 - TotalBits)

// SortKey orders commands render target first, then shader, vertex source and material.
// The priority sits above all of them.
type SortKey uint64

// Fields are the unpacked parts of a SortKey.
type Fields struct {
	Priority     uint8
	RenderTarget resources.Index
	Shader       resources.Index
	VertexSource resources.Index
	Material     resources.Index
}

func fieldMask[T constraints.Unsigned](width uint) T {
	return T(1)<<width - 1
}

func fits[T constraints.Unsigned](v T, width uint) bool {
	return v <= fieldMask[T](width)
}

// Fits reports whether every field is inside its bit width. Only such fields
// pack into a key that unpacks to the same values.
func (f Fields) Fits() bool {
	return fits(uint32(f.Priority), PriorityBits) &&
		fits(uint32(f.RenderTarget), RenderTargetBits) &&
		fits(uint32(f.Shader), ShaderBits) &&
		fits(uint32(f.VertexSource), VertexSourceBits) &&
		fits(uint32(f.Material), MaterialBits)
}

// Pack shifts each field into its range. Bits above a field's width are dropped.
func Pack(f Fields) SortKey {
	return SortKey(uint64(f.Priority)&fieldMask[uint64](PriorityBits)<<PriorityShift |
		uint64(f.RenderTarget)&fieldMask[uint64](RenderTargetBits)<<RenderTargetShift |
		uint64(f.Shader)&fieldMask[uint64](ShaderBits)<<ShaderShift |
		uint64(f.VertexSource)&fieldMask[uint64](VertexSourceBits)<<VertexSourceShift |
		uint64(f.Material)&fieldMask[uint64](MaterialBits)<<MaterialShift)
}

func Unpack(k SortKey) Fields {
	return Fields{
		Priority:     k.Priority(),
		RenderTarget: k.RenderTarget(),
		Shader:       k.Shader(),
		VertexSource: k.VertexSource(),
		Material:     k.Material(),
	}
}

func (k SortKey) Priority() uint8 {
	return uint8(uint64(k) >> PriorityShift & fieldMask[uint64](PriorityBits))
}

func (k SortKey) RenderTarget() resources.Index {
	return resources.Index(uint64(k) >> RenderTargetShift & fieldMask[uint64](RenderTargetBits))
}

func (k SortKey) Shader() resources.Index {
	return resources.Index(uint64(k) >> ShaderShift & fieldMask[uint64](ShaderBits))
}

func (k SortKey) VertexSource() resources.Index {
	return resources.Index(uint64(k) >> VertexSourceShift & fieldMask[uint64](VertexSourceBits))
}

func (k SortKey) Material() resources.Index {
	return resources.Index(uint64(k) >> MaterialShift & fieldMask[uint64](MaterialBits))
}

func (k SortKey) String() string {
	f := Unpack(k)
	return fmt.Sprintf("SortKey(p=%d rt=%d sh=%d vs=%d mat=%d)", f.Priority, f.RenderTarget, f.Shader, f.VertexSource, f.Material)
}

var categoryBits = [resources.CategoryCount]uint{
	resources.CategoryRenderTarget: RenderTargetBits,
	resources.CategoryShader:       ShaderBits,
	resources.CategoryVertexSource: VertexSourceBits,
	resources.CategoryMaterial:     MaterialBits,
}

// Codec turns resource handles into sort keys and back through the registry.
type Codec struct {
	registry *resources.Registry
}

// NewCodec fails when a registry category can hand out more indices than its key field holds.
func NewCodec(registry *resources.Registry) (*Codec, error) {
	for c := resources.Category(0); c < resources.CategoryCount; c++ {
		if limit := uint64(1) << categoryBits[c]; uint64(registry.Capacity(c)) > limit {
			err := fmt.Errorf("%w: %s capacity %d exceeds %d bits", core.ErrIndexOverflow, c, registry.Capacity(c), categoryBits[c])
			core.LogError("%s", err)
			return nil, err
		}
	}
	return &Codec{registry: registry}, nil
}

func (c *Codec) Registry() *resources.Registry {
	return c.registry
}

func (c *Codec) compress(cat resources.Category, h resources.Handle) (resources.Index, error) {
	idx, err := c.registry.CompressID(cat, h)
	if err != nil {
		return resources.InvalidIndex, err
	}
	if !fits(uint32(idx), categoryBits[cat]) {
		return resources.InvalidIndex, fmt.Errorf("%w: %s index %d", core.ErrIndexOverflow, cat, idx)
	}
	return idx, nil
}

// Encode builds the sort key of a command drawn with the given resources.
func (c *Codec) Encode(priority uint8, renderTarget, shader, vertexSource, material resources.Handle) (SortKey, error) {
	var f Fields
	var err error
	f.Priority = priority
	if f.RenderTarget, err = c.compress(resources.CategoryRenderTarget, renderTarget); err != nil {
		return 0, err
	}
	if f.Shader, err = c.compress(resources.CategoryShader, shader); err != nil {
		return 0, err
	}
	if f.VertexSource, err = c.compress(resources.CategoryVertexSource, vertexSource); err != nil {
		return 0, err
	}
	if f.Material, err = c.compress(resources.CategoryMaterial, material); err != nil {
		return 0, err
	}
	return Pack(f), nil
}

// Decoded is a sort key expanded back into handles.
type Decoded struct {
	Priority     uint8
	RenderTarget resources.Handle
	Shader       resources.Handle
	VertexSource resources.Handle
	Material     resources.Handle
}

func (c *Codec) Decode(k SortKey) (Decoded, error) {
	f := Unpack(k)
	d := Decoded{Priority: f.Priority}
	var err error
	if d.RenderTarget, err = c.registry.DecompressID(resources.CategoryRenderTarget, f.RenderTarget); err != nil {
		return Decoded{}, err
	}
	if d.Shader, err = c.registry.DecompressID(resources.CategoryShader, f.Shader); err != nil {
		return Decoded{}, err
	}
	if d.VertexSource, err = c.registry.DecompressID(resources.CategoryVertexSource, f.VertexSource); err != nil {
		return Decoded{}, err
	}
	if d.Material, err = c.registry.DecompressID(resources.CategoryMaterial, f.Material); err != nil {
		return Decoded{}, err
	}
	return d, nil
}
