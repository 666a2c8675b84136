package resources

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/renderqueue/engine/containers"
	"github.com/spaghettifunk/renderqueue/engine/core"
)

/** @brief The configuration for the resource registry. */
type RegistryConfig struct {
	/** @brief The maximum number of render targets. Must fit the render target sort key field. */
	MaxRenderTargetCount uint32
	/** @brief The maximum number of shaders. */
	MaxShaderCount uint32
	/** @brief The maximum number of vertex sources. */
	MaxVertexSourceCount uint32
	/** @brief The maximum number of materials. */
	MaxMaterialCount uint32
}

type categoryState struct {
	capacity uint32
	lookup   map[Handle]Index
	handles  []Handle
	items    []any
	free     *containers.RingQueue[Index]
}

// Registry assigns dense compressed indices to resource handles, per category.
// It is safe for concurrent use: the producer registers resources while the
// consumer resolves indices during submission.
type Registry struct {
	mu         sync.RWMutex
	categories [CategoryCount]*categoryState
}

func NewRegistry(config *RegistryConfig) (*Registry, error) {
	capacities := [CategoryCount]uint32{
		CategoryRenderTarget: config.MaxRenderTargetCount,
		CategoryShader:       config.MaxShaderCount,
		CategoryVertexSource: config.MaxVertexSourceCount,
		CategoryMaterial:     config.MaxMaterialCount,
	}
	r := &Registry{}
	for c, capacity := range capacities {
		if capacity == 0 {
			err := fmt.Errorf("NewRegistry - max %s count must be greater than 0", Category(c))
			core.LogError("%s", err)
			return nil, err
		}
		if uint64(capacity) > uint64(InvalidIndex) {
			err := fmt.Errorf("NewRegistry - max %s count %d exceeds the index range", Category(c), capacity)
			core.LogError("%s", err)
			return nil, err
		}
		r.categories[c] = &categoryState{
			capacity: capacity,
			lookup:   make(map[Handle]Index),
			free:     containers.NewRingQueue[Index](int(capacity)),
		}
	}
	return r, nil
}

func (r *Registry) category(c Category) *categoryState {
	if c >= CategoryCount {
		panic(fmt.Sprintf("resources: invalid category %d", c))
	}
	return r.categories[c]
}

func categoryOf(item any) (Category, bool) {
	switch item.(type) {
	case *RenderTarget:
		return CategoryRenderTarget, true
	case *Shader:
		return CategoryShader, true
	case *VertexSource:
		return CategoryVertexSource, true
	case *Material:
		return CategoryMaterial, true
	default:
		return CategoryCount, false
	}
}

// Register stores item under h and returns its compressed index. Registering
// the same handle twice replaces the item and keeps the index.
func (r *Registry) Register(h Handle, item any) (Index, error) {
	c, ok := categoryOf(item)
	if !ok {
		return InvalidIndex, fmt.Errorf("resources: unsupported resource type %T", item)
	}
	if h.IsNil() {
		return InvalidIndex, fmt.Errorf("resources: cannot register %s with a nil handle", c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.category(c)
	if idx, exists := cs.lookup[h]; exists {
		cs.items[idx] = item
		return idx, nil
	}

	var idx Index
	if free, err := cs.free.Dequeue(); err == nil {
		idx = free
	} else if uint32(len(cs.handles)) < cs.capacity {
		idx = Index(len(cs.handles))
		cs.handles = append(cs.handles, NilHandle)
		cs.items = append(cs.items, nil)
	} else {
		err := fmt.Errorf("%w: %s (max=%d)", core.ErrRegistryFull, c, cs.capacity)
		core.LogError("%s", err)
		return InvalidIndex, err
	}

	cs.lookup[h] = idx
	cs.handles[idx] = h
	cs.items[idx] = item
	return idx, nil
}

// Unregister releases the handle. Its index may be reused by a later registration.
func (r *Registry) Unregister(c Category, h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.category(c)
	idx, exists := cs.lookup[h]
	if !exists {
		return fmt.Errorf("%w: %s %s", core.ErrResourceNotFound, c, h)
	}
	delete(cs.lookup, h)
	cs.handles[idx] = NilHandle
	cs.items[idx] = nil
	// The free list is as large as the category, it cannot overflow.
	_ = cs.free.Enqueue(idx)
	return nil
}

func (r *Registry) CompressID(c Category, h Handle) (Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.category(c).lookup[h]
	if !exists {
		return InvalidIndex, fmt.Errorf("%w: %s %s", core.ErrResourceNotFound, c, h)
	}
	return idx, nil
}

func (r *Registry) DecompressID(c Category, idx Index) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs := r.category(c)
	if uint64(idx) >= uint64(len(cs.handles)) || cs.handles[idx].IsNil() {
		return NilHandle, fmt.Errorf("%w: %s index %d", core.ErrResourceNotFound, c, idx)
	}
	return cs.handles[idx], nil
}

// Resolve returns the handle and the resource stored at a compressed index.
func (r *Registry) Resolve(c Category, idx Index) (Handle, any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs := r.category(c)
	if uint64(idx) >= uint64(len(cs.handles)) || cs.handles[idx].IsNil() {
		return NilHandle, nil, fmt.Errorf("%w: %s index %d", core.ErrResourceNotFound, c, idx)
	}
	return cs.handles[idx], cs.items[idx], nil
}

func (r *Registry) Capacity(c Category) uint32 {
	return r.category(c).capacity
}

func (r *Registry) Count(c Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.category(c).lookup)
}

// Resource is one of the types the registry stores.
type Resource interface {
	RenderTarget | Shader | VertexSource | Material
}

// Get returns the resource registered under h.
func Get[T Resource](r *Registry, h Handle) (*T, error) {
	var zero *T
	c, _ := categoryOf(zero)

	r.mu.RLock()
	defer r.mu.RUnlock()

	cs := r.category(c)
	idx, exists := cs.lookup[h]
	if !exists {
		return nil, fmt.Errorf("%w: %s %s", core.ErrResourceNotFound, c, h)
	}
	return cs.items[idx].(*T), nil
}

// Lookup returns the resource stored at a compressed index.
func Lookup[T Resource](r *Registry, idx Index) (*T, error) {
	var zero *T
	c, _ := categoryOf(zero)
	_, item, err := r.Resolve(c, idx)
	if err != nil {
		return nil, err
	}
	return item.(*T), nil
}

func (r *Registry) RegisterRenderTarget(rt *RenderTarget) (Handle, error) {
	return r.registerNew(rt)
}

func (r *Registry) RegisterShader(s *Shader) (Handle, error) {
	return r.registerNew(s)
}

func (r *Registry) RegisterVertexSource(v *VertexSource) (Handle, error) {
	return r.registerNew(v)
}

func (r *Registry) RegisterMaterial(m *Material) (Handle, error) {
	if err := m.State.Validate(); err != nil {
		return NilHandle, fmt.Errorf("material %q: %w", m.Name, err)
	}
	return r.registerNew(m)
}

func (r *Registry) registerNew(item any) (Handle, error) {
	h := NewHandle()
	if _, err := r.Register(h, item); err != nil {
		return NilHandle, err
	}
	return h, nil
}
