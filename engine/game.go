package engine

import (
	"github.com/spaghettifunk/renderqueue/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnShutdown        Shutdown
}

// Initialize registers the game's resources and creates its buckets.
type Initialize func(renderer *systems.RendererSystem) error
type Update func(deltaTime float64) error

// Render records the commands of frame. Returning systems.ErrStop ends the run.
type Render func(frame uint64) error
type Shutdown func() error
