package commands

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/debug"
	"github.com/spaghettifunk/renderqueue/engine/renderer/keys"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

// submitKeys records one idCmd per key, with ids in submission order, and
// readies the packet for submission.
func submitKeys(t *testing.T, p *CommandPacket, ks ...keys.SortKey) {
	t.Helper()
	for i, k := range ks {
		cmd, err := SubmitCommand[idCmd](p, k)
		if err != nil {
			t.Fatalf("SubmitCommand #%d: %v", i, err)
		}
		cmd.ID = uint32(i)
	}
	p.SwapBuffer()
	p.SortRecords()
}

func TestSubmitterSharedState(t *testing.T) {
	f := newFixture(t, 6)
	p := newPacket(t, 8)
	rec := debug.NewRecorder()
	s := NewSubmitter(f.registry, core.FailurePolicyReport)

	submitKeys(t, p, key(0, 1, 2, 3, 5), key(0, 1, 2, 3, 4))
	stats := s.Submit(rec, p)

	want := []string{
		"BindRenderTarget(rt1)",
		"BindShader(sh2)",
		"BindVertexSource(vs3)",
		fmt.Sprintf("ApplyRenderState[%d]", resources.DefaultRenderState.Hash()),
		"UploadMaterial(mat4)",
		"Draw[1 1 0 0]",
		"UploadMaterial(mat5)",
		"Draw[0 1 0 0]",
	}
	if have := rec.Ops(); !slices.Equal(have, want) {
		t.Fatalf("Submit:\nhave %v\nwant %v", have, want)
	}
	wantStats := Stats{
		RenderTargetBinds: 1,
		ShaderBinds:       1,
		VertexSourceBinds: 1,
		MaterialBinds:     2,
		StateChanges:      1,
		Dispatched:        2,
	}
	if stats != wantStats {
		t.Fatalf("Stats:\nhave %+v\nwant %+v", stats, wantStats)
	}
}

func TestSubmitterMinimalStateChanges(t *testing.T) {
	f := newFixture(t, 4)
	p := newPacket(t, 32)
	rec := debug.NewRecorder()
	s := NewSubmitter(f.registry, core.FailurePolicyReport)

	a := key(0, 0, 0, 0, 0)
	b := key(0, 1, 1, 1, 1)
	// 7 commands of a and 5 of b, interleaved.
	var ks []keys.SortKey
	for i := 0; i < 5; i++ {
		ks = append(ks, a, b)
	}
	ks = append(ks, a, a)
	submitKeys(t, p, ks...)

	stats := s.Submit(rec, p)
	for _, op := range []string{"BindRenderTarget", "BindShader", "BindVertexSource", "UploadMaterial"} {
		if n := rec.Count(op); n != 2 {
			t.Fatalf("%s calls:\nhave %d\nwant 2", op, n)
		}
	}
	if stats.Dispatched != 12 {
		t.Fatalf("Dispatched:\nhave %d\nwant 12", stats.Dispatched)
	}
	// Both materials use the default state.
	if stats.StateChanges != 1 {
		t.Fatalf("StateChanges:\nhave %d\nwant 1", stats.StateChanges)
	}
}

func TestSubmitterStateChanges(t *testing.T) {
	f := newFixture(t, 2)
	glass, err := f.registry.RegisterMaterial(&resources.Material{
		Name:   "glass",
		Shader: f.shaders[0],
		State:  resources.TransparentRenderState,
	})
	if err != nil {
		t.Fatalf("RegisterMaterial: %v", err)
	}
	glassIdx, _ := f.registry.CompressID(resources.CategoryMaterial, glass)

	p := newPacket(t, 8)
	rec := debug.NewRecorder()
	s := NewSubmitter(f.registry, core.FailurePolicyReport)
	submitKeys(t, p, key(0, 0, 0, 0, 0), key(0, 0, 0, 0, 1), key(0, 0, 0, 0, glassIdx))

	stats := s.Submit(rec, p)
	if stats.StateChanges != 2 || stats.MaterialBinds != 3 {
		t.Fatalf("Stats:\nhave %+v\nwant 2 state changes and 3 material binds", stats)
	}
}

func TestSubmitterResetsPerPacket(t *testing.T) {
	f := newFixture(t, 1)
	rec := debug.NewRecorder()
	s := NewSubmitter(f.registry, core.FailurePolicyReport)

	for i := 0; i < 2; i++ {
		p := newPacket(t, 2)
		submitKeys(t, p, key(0, 0, 0, 0, 0))
		s.Submit(rec, p)
	}
	if n := rec.Count("BindShader"); n != 2 {
		t.Fatalf("BindShader calls:\nhave %d\nwant 2", n)
	}
}

func TestSubmitterSkipsUnknownResource(t *testing.T) {
	f := newFixture(t, 2)
	p := newPacket(t, 8)
	rec := debug.NewRecorder()
	s := NewSubmitter(f.registry, core.FailurePolicyReport)

	submitKeys(t, p, key(0, 0, 0, 0, 0), key(0, 0, 0, 0, 9), key(0, 1, 1, 1, 1))
	stats := s.Submit(rec, p)
	if stats.Skipped != 1 || stats.Dispatched != 2 {
		t.Fatalf("Stats:\nhave %+v\nwant 1 skipped and 2 dispatched", stats)
	}
	if have, want := draws(rec), []int64{0, 2}; !slices.Equal(have, want) {
		t.Fatalf("draws:\nhave %v\nwant %v", have, want)
	}
}

func TestSubmitterPanicsOnUnknownResource(t *testing.T) {
	f := newFixture(t, 1)
	p := newPacket(t, 2)
	s := NewSubmitter(f.registry, core.FailurePolicyPanic)
	submitKeys(t, p, key(0, 0, 0, 0, 9))

	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, core.ErrResourceNotFound) {
			t.Fatalf("recover():\nhave %v\nwant %v", err, core.ErrResourceNotFound)
		}
		// The flush region is released even when submission panics.
		p.SwapBuffer()
	}()
	s.Submit(debug.NewRecorder(), p)
	t.Fatal("Submit did not panic")
}

func TestSubmitterBindFailure(t *testing.T) {
	f := newFixture(t, 2)
	p := newPacket(t, 8)
	rec := debug.NewRecorder()
	rec.FailOn("mat0")
	s := NewSubmitter(f.registry, core.FailurePolicyReport)

	submitKeys(t, p, key(0, 0, 0, 0, 0), key(0, 0, 0, 0, 0), key(0, 0, 0, 0, 1))
	stats := s.Submit(rec, p)
	if stats.Skipped != 2 || stats.Dispatched != 1 {
		t.Fatalf("Stats:\nhave %+v\nwant 2 skipped and 1 dispatched", stats)
	}
	if have, want := draws(rec), []int64{2}; !slices.Equal(have, want) {
		t.Fatalf("draws:\nhave %v\nwant %v", have, want)
	}
	// Render target, shader and vertex source stay bound across the failures.
	if n := rec.Count("BindShader"); n != 1 {
		t.Fatalf("BindShader calls:\nhave %d\nwant 1", n)
	}
}
