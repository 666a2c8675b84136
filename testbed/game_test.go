package testbed

import (
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/renderqueue/engine"
	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/debug"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func TestTestGame(t *testing.T) {
	c := config.Default()
	c.Testbed = config.TestbedConfig{Frames: 10, DrawsPerFrame: 64, Materials: 16, Seed: 42}

	tg := NewTestGame(&engine.ApplicationConfig{Name: "testbed", Config: c}, c.Testbed)
	rec := debug.NewRecorder()
	e, err := engine.New(tg.Game, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if have, want := rec.Count("DrawIndexed"), 10*64; have != want {
		t.Fatalf("DrawIndexed calls:\nhave %d\nwant %d", have, want)
	}
	if have, want := rec.Count("SetUniformMat4"), 10*64; have != want {
		t.Fatalf("SetUniformMat4 calls:\nhave %d\nwant %d", have, want)
	}
	if have, want := rec.Count("Draw"), 10; have != want {
		t.Fatalf("UI draws:\nhave %d\nwant %d", have, want)
	}
	// Every world draw runs right after its model matrix upload, the UI draw
	// right after its scissor.
	calls := rec.Calls()
	for i, c := range calls {
		var want string
		switch c.Op {
		case "DrawIndexed":
			want = "SetUniformMat4"
		case "Draw":
			want = "SetScissor"
		default:
			continue
		}
		if i == 0 || calls[i-1].Op != want {
			have := "nothing"
			if i > 0 {
				have = calls[i-1].String()
			}
			t.Fatalf("call before %s@%d:\nhave %s\nwant %s", c, i, have, want)
		}
	}

	_, total := e.Renderer().Stats()
	if total.Skipped != 0 {
		t.Fatalf("Skipped:\nhave %d\nwant 0", total.Skipped)
	}
	// Packets are split by shader, so each one binds its shader once: at most
	// four world packets and the UI packet per frame.
	if total.ShaderBinds > 10*5 {
		t.Fatalf("ShaderBinds:\nhave %d\nwant at most %d", total.ShaderBinds, 10*5)
	}
}
