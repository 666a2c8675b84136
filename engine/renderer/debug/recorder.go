package debug

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

var ErrInjected = errors.New("injected backend failure")

// Call is one backend call as seen by the Recorder.
type Call struct {
	Op   string
	Name string
	Args []int64
}

func (c Call) String() string {
	if c.Name != "" {
		return fmt.Sprintf("%s(%s)", c.Op, c.Name)
	}
	return fmt.Sprintf("%s%v", c.Op, c.Args)
}

// Recorder is a null backend that records every call it receives.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	counts map[string]int
	// Name of a resource whose bind fails.
	failOn string
	// Log each call at debug level.
	Verbose bool
	// Only count calls, for long runs.
	Discard bool
}

var _ renderer.Backend = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[string]int)}
}

// FailOn makes every bind of the resource called name return ErrInjected.
func (r *Recorder) FailOn(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn = name
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Discard {
		r.calls = append(r.calls, c)
	}
	r.counts[c.Op]++
	if r.Verbose {
		core.LogDebug("backend: %s", c)
	}
}

func (r *Recorder) bind(op, name string) error {
	r.mu.Lock()
	fail := r.failOn != "" && r.failOn == name
	r.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: %s(%s)", ErrInjected, op, name)
	}
	r.record(Call{Op: op, Name: name})
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded calls as strings, skipping frame boundaries.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ops []string
	for _, c := range r.calls {
		if c.Op == "BeginFrame" || c.Op == "EndFrame" {
			continue
		}
		ops = append(ops, c.String())
	}
	return ops
}

func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	clear(r.counts)
}

func (r *Recorder) Type() renderer.RendererType {
	return renderer.Null
}

func (r *Recorder) BeginFrame(frame uint64) error {
	r.record(Call{Op: "BeginFrame", Args: []int64{int64(frame)}})
	return nil
}

func (r *Recorder) EndFrame(frame uint64) error {
	r.record(Call{Op: "EndFrame", Args: []int64{int64(frame)}})
	return nil
}

func (r *Recorder) BindRenderTarget(target *resources.RenderTarget) error {
	return r.bind("BindRenderTarget", target.Name)
}

func (r *Recorder) BindShader(shader *resources.Shader) error {
	return r.bind("BindShader", shader.Name)
}

func (r *Recorder) BindVertexSource(source *resources.VertexSource) error {
	return r.bind("BindVertexSource", source.Name)
}

func (r *Recorder) ApplyRenderState(state resources.RenderState) error {
	r.record(Call{Op: "ApplyRenderState", Args: []int64{int64(state.Hash())}})
	return nil
}

func (r *Recorder) UploadMaterial(shader *resources.Shader, material *resources.Material) error {
	return r.bind("UploadMaterial", material.Name)
}

func (r *Recorder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.record(Call{Op: "Draw", Args: []int64{int64(vertexCount), int64(instanceCount), int64(firstVertex), int64(firstInstance)}})
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.record(Call{Op: "DrawIndexed", Args: []int64{int64(indexCount), int64(instanceCount), int64(firstIndex), int64(vertexOffset), int64(firstInstance)}})
}

func (r *Recorder) SetScissor(x, y int32, width, height uint32) {
	r.record(Call{Op: "SetScissor", Args: []int64{int64(x), int64(y), int64(width), int64(height)}})
}

func (r *Recorder) SetUniformMat4(location uint32, value [16]float32) {
	r.record(Call{Op: "SetUniformMat4", Args: []int64{int64(location), int64(value[0])}})
}
