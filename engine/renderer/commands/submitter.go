package commands

import (
	"fmt"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

// Stats counts what a flush did.
type Stats struct {
	RenderTargetBinds int
	ShaderBinds       int
	VertexSourceBinds int
	MaterialBinds     int
	// Render state groups applied, a subset of MaterialBinds.
	StateChanges int
	// Commands dispatched, chained commands included.
	Dispatched int
	// Records skipped because a resource could not be resolved or bound.
	Skipped int
}

func (s *Stats) Add(o Stats) {
	s.RenderTargetBinds += o.RenderTargetBinds
	s.ShaderBinds += o.ShaderBinds
	s.VertexSourceBinds += o.VertexSourceBinds
	s.MaterialBinds += o.MaterialBinds
	s.StateChanges += o.StateChanges
	s.Dispatched += o.Dispatched
	s.Skipped += o.Skipped
}

// Submitter walks a packet's sorted records and only rebinds the state that
// differs from the previous record before dispatching each command.
type Submitter struct {
	registry *resources.Registry
	policy   core.FailurePolicy

	lastRenderTarget resources.Index
	lastShader       resources.Index
	lastVertexSource resources.Index
	lastMaterial     resources.Index
	lastState        resources.StateHash

	shader *resources.Shader
}

func NewSubmitter(registry *resources.Registry, policy core.FailurePolicy) *Submitter {
	s := &Submitter{
		registry: registry,
		policy:   policy,
	}
	s.Reset()
	return s
}

// Reset forgets every bound resource.
func (s *Submitter) Reset() {
	s.lastRenderTarget = resources.InvalidIndex
	s.lastShader = resources.InvalidIndex
	s.lastVertexSource = resources.InvalidIndex
	s.lastMaterial = resources.InvalidIndex
	s.lastState = resources.InvalidStateHash
	s.shader = nil
}

// Submit flushes the packet's sorted flush region to the backend.
func (s *Submitter) Submit(backend renderer.Backend, p *CommandPacket) Stats {
	var stats Stats
	s.Reset()
	p.read(func(r *region) {
		for _, rec := range r.records {
			if err := s.bind(backend, rec.Key, &stats); err != nil {
				stats.Skipped++
				s.fail(err)
				continue
			}
			stats.Dispatched += p.dispatch(r, backend, rec)
		}
	})
	return stats
}

func (s *Submitter) fail(err error) {
	if s.policy == core.FailurePolicyPanic {
		s.policy.Fail(err)
		return
	}
	core.LogWarn("skipping command: %s", err)
}

func (s *Submitter) bind(backend renderer.Backend, key keys.SortKey, stats *Stats) error {
	f := keys.Unpack(key)

	if f.RenderTarget != s.lastRenderTarget {
		rt, err := resources.Lookup[resources.RenderTarget](s.registry, f.RenderTarget)
		if err != nil {
			return err
		}
		if err := backend.BindRenderTarget(rt); err != nil {
			return fmt.Errorf("bind render target %q: %w", rt.Name, err)
		}
		s.lastRenderTarget = f.RenderTarget
		stats.RenderTargetBinds++
	}

	if f.Shader != s.lastShader {
		shader, err := resources.Lookup[resources.Shader](s.registry, f.Shader)
		if err != nil {
			return err
		}
		if err := backend.BindShader(shader); err != nil {
			return fmt.Errorf("bind shader %q: %w", shader.Name, err)
		}
		s.lastShader = f.Shader
		s.shader = shader
		stats.ShaderBinds++
	}

	if f.VertexSource != s.lastVertexSource {
		vs, err := resources.Lookup[resources.VertexSource](s.registry, f.VertexSource)
		if err != nil {
			return err
		}
		if err := backend.BindVertexSource(vs); err != nil {
			return fmt.Errorf("bind vertex source %q: %w", vs.Name, err)
		}
		s.lastVertexSource = f.VertexSource
		stats.VertexSourceBinds++
	}

	if f.Material != s.lastMaterial {
		m, err := resources.Lookup[resources.Material](s.registry, f.Material)
		if err != nil {
			return err
		}
		if hash := m.State.Hash(); hash != s.lastState {
			if err := backend.ApplyRenderState(m.State); err != nil {
				return fmt.Errorf("apply render state of material %q: %w", m.Name, err)
			}
			s.lastState = hash
			stats.StateChanges++
		}
		if err := backend.UploadMaterial(s.shader, m); err != nil {
			return fmt.Errorf("upload material %q: %w", m.Name, err)
		}
		s.lastMaterial = f.Material
		stats.MaterialBinds++
	}
	return nil
}
