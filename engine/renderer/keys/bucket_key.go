package keys

import "github.com/spaghettifunk/renderqueue/engine/resources"

// BucketKey selects the packet a command lands in. It is coarser than a SortKey,
// usually one per render state and shader combination.
type BucketKey uint64

// Layout of a state derived BucketKey: the whole StateHash on top, so its
// blend flag is bit 63, then the shader index.
const (
	StateShift        = 64 - resources.StateHashBits
	BucketShaderBits  = ShaderBits
	BucketShaderShift = StateShift - BucketShaderBits
)

const _ = uint8(BucketShaderShift)

// BlendEnabled is set on every bucket whose state blends. Blended buckets sort
// after opaque ones.
const BlendEnabled BucketKey = 1 << 63

// StateBucketKey derives the bucket of a render state drawn with a shader.
func StateBucketKey(state resources.RenderState, shader resources.Index) BucketKey {
	return BucketKey(uint64(state.Hash())<<StateShift |
		uint64(shader)&fieldMask[uint64](BucketShaderBits)<<BucketShaderShift)
}

// DecodeStateBucketKey is the inverse of StateBucketKey.
func DecodeStateBucketKey(k BucketKey) (resources.RenderState, resources.Index) {
	state := resources.StateHash(uint64(k) >> StateShift).RenderState()
	shader := resources.Index(uint64(k) >> BucketShaderShift & fieldMask[uint64](BucketShaderBits))
	return state, shader
}

func (k BucketKey) Blended() bool {
	return k&BlendEnabled != 0
}
