package resources

import "fmt"

/** @brief Blend factor applied to the source or destination colour. */
type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColour
	BlendFactorOneMinusSrcColour
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorDstColour
	BlendFactorOneMinusDstColour
	BlendFactorSrcAlphaSaturate
	BlendFactorConstantColour
	BlendFactorOneMinusConstantColour
	BlendFactorConstantAlpha
	BlendFactorOneMinusConstantAlpha
	BlendFactorSrc1Alpha
	BlendFactorSrc1Colour
	BlendFactorOneMinusSrc1Colour
	BlendFactorOneMinusSrc1Alpha
	blendFactorCount
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
	blendOpCount
)

/** @brief Determines face culling mode during rendering. */
type FaceCullMode uint8

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = iota
	/** @brief Only front faces are culled. */
	FaceCullModeFront
	/** @brief Only back faces are culled. */
	FaceCullModeBack
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack
	faceCullModeCount
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
	polygonModeCount
)

type CompareOp uint8

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
	compareOpCount
)

// Encoding widths of each render state field.
const (
	BlendFactorBits  = 5
	BlendOpBits      = 3
	FaceCullModeBits = 2
	PolygonModeBits  = 2
	CompareOpBits    = 3

	// Total width of a StateHash.
	StateHashBits = 1 + 2*BlendFactorBits + BlendOpBits + FaceCullModeBits + PolygonModeBits + 1 + 1 + CompareOpBits
)

// Every enum must fit its field.
const (
	_ = uint8((1 << BlendFactorBits) - int(blendFactorCount))
	_ = uint8((1 << BlendOpBits) - int(blendOpCount))
	_ = uint8((1 << FaceCullModeBits) - int(faceCullModeCount))
	_ = uint8((1 << PolygonModeBits) - int(polygonModeCount))
	_ = uint8((1 << CompareOpBits) - int(compareOpCount))
	_ = uint8(32 - StateHashBits)
)

func mask(width uint) uint32 {
	return (1 << width) - 1
}

// RenderState is the fixed function state group a material applies.
type RenderState struct {
	BlendEnabled bool
	SrcFactor    BlendFactor
	DstFactor    BlendFactor
	BlendOp      BlendOp
	CullMode     FaceCullMode
	PolygonMode  PolygonMode
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareOp
}

// DefaultRenderState is opaque geometry: no blending, back face culling, depth tested and written.
var DefaultRenderState = RenderState{
	SrcFactor:    BlendFactorOne,
	DstFactor:    BlendFactorZero,
	BlendOp:      BlendOpAdd,
	CullMode:     FaceCullModeBack,
	PolygonMode:  PolygonModeFill,
	DepthTest:    true,
	DepthWrite:   true,
	DepthCompare: CompareOpLessOrEqual,
}

// TransparentRenderState is alpha blended geometry that does not write depth.
var TransparentRenderState = RenderState{
	BlendEnabled: true,
	SrcFactor:    BlendFactorSrcAlpha,
	DstFactor:    BlendFactorOneMinusSrcAlpha,
	BlendOp:      BlendOpAdd,
	CullMode:     FaceCullModeNone,
	PolygonMode:  PolygonModeFill,
	DepthTest:    true,
	DepthWrite:   false,
	DepthCompare: CompareOpLessOrEqual,
}

// StateHash identifies a RenderState. Equal states have equal hashes and the
// hash can be turned back into the state.
type StateHash uint32

// InvalidStateHash never matches a real state.
const InvalidStateHash StateHash = ^StateHash(0)

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (s RenderState) Validate() error {
	switch {
	case s.SrcFactor >= blendFactorCount:
		return fmt.Errorf("invalid source blend factor %d", s.SrcFactor)
	case s.DstFactor >= blendFactorCount:
		return fmt.Errorf("invalid destination blend factor %d", s.DstFactor)
	case s.BlendOp >= blendOpCount:
		return fmt.Errorf("invalid blend op %d", s.BlendOp)
	case s.CullMode >= faceCullModeCount:
		return fmt.Errorf("invalid cull mode %d", s.CullMode)
	case s.PolygonMode >= polygonModeCount:
		return fmt.Errorf("invalid polygon mode %d", s.PolygonMode)
	case s.DepthCompare >= compareOpCount:
		return fmt.Errorf("invalid depth compare op %d", s.DepthCompare)
	}
	return nil
}

// Hash packs the state, most significant field first: blend enabled, source
// factor, destination factor, blend op, cull mode, polygon mode, depth test,
// depth write, depth compare op.
func (s RenderState) Hash() StateHash {
	var h uint32
	h = boolBit(s.BlendEnabled)
	h = h<<BlendFactorBits | uint32(s.SrcFactor)&mask(BlendFactorBits)
	h = h<<BlendFactorBits | uint32(s.DstFactor)&mask(BlendFactorBits)
	h = h<<BlendOpBits | uint32(s.BlendOp)&mask(BlendOpBits)
	h = h<<FaceCullModeBits | uint32(s.CullMode)&mask(FaceCullModeBits)
	h = h<<PolygonModeBits | uint32(s.PolygonMode)&mask(PolygonModeBits)
	h = h<<1 | boolBit(s.DepthTest)
	h = h<<1 | boolBit(s.DepthWrite)
	h = h<<CompareOpBits | uint32(s.DepthCompare)&mask(CompareOpBits)
	return StateHash(h)
}

// RenderState unpacks a hash produced by RenderState.Hash.
func (h StateHash) RenderState() RenderState {
	v := uint32(h)
	var s RenderState
	s.DepthCompare = CompareOp(v & mask(CompareOpBits))
	v >>= CompareOpBits
	s.DepthWrite = v&1 != 0
	v >>= 1
	s.DepthTest = v&1 != 0
	v >>= 1
	s.PolygonMode = PolygonMode(v & mask(PolygonModeBits))
	v >>= PolygonModeBits
	s.CullMode = FaceCullMode(v & mask(FaceCullModeBits))
	v >>= FaceCullModeBits
	s.BlendOp = BlendOp(v & mask(BlendOpBits))
	v >>= BlendOpBits
	s.DstFactor = BlendFactor(v & mask(BlendFactorBits))
	v >>= BlendFactorBits
	s.SrcFactor = BlendFactor(v & mask(BlendFactorBits))
	v >>= BlendFactorBits
	s.BlendEnabled = v&1 != 0
	return s
}
