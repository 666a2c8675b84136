package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
	"github.com/spaghettifunk/renderqueue/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	mu            sync.Mutex
	currentStage  Stage
	gameInstance  *Game
	config        *config.Config
	systemManager *systems.SystemManager
	clock         *core.Clock
	lastTime      float64
	cancel        context.CancelFunc
}

func New(g *Game, backend renderer.Backend) (*Engine, error) {
	if g.ApplicationConfig == nil {
		return nil, fmt.Errorf("game has no application config")
	}
	if g.FnRender == nil {
		return nil, fmt.Errorf("game has no render function")
	}
	c := g.ApplicationConfig.Config
	if g.ApplicationConfig.ConfigPath != "" {
		var err error
		if c, err = config.Load(g.ApplicationConfig.ConfigPath); err != nil {
			core.LogError("%s", err)
			return nil, err
		}
	}
	if c == nil {
		c = config.Default()
	}
	core.SetLogLevel(c.LogLevel())

	sm, err := systems.NewSystemManager(backend, c, g.ApplicationConfig.ConfigPath)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        c,
		systemManager: sm,
		clock:         core.NewClock(),
	}, nil
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Renderer() *systems.RendererSystem {
	return e.systemManager.RendererSystem
}

func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) setStage(s Stage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentStage = s
}

func (e *Engine) Initialize() error {
	e.setStage(EngineStageInitializing)
	core.LogInfo("initializing %s (%s backend)", e.gameInstance.ApplicationConfig.Name, e.Renderer().Backend().Type())

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.Renderer()); err != nil {
			return err
		}
	}
	e.setStage(EngineStageInitialized)
	return nil
}

// Run renders until the game stops it or Shutdown is called.
func (e *Engine) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.currentStage != EngineStageInitialized {
		e.mu.Unlock()
		cancel()
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed().Seconds()

	err := e.Renderer().Run(ctx, func(ctx context.Context, frame uint64) error {
		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed().Seconds()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				return err
			}
		}
		// Call the game's render routine.
		if err := e.gameInstance.FnRender(frame); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		core.LogError("Game render failed: %s", err)
		return err
	}

	fps, ms := e.Renderer().Metrics().Frame()
	_, total := e.Renderer().Stats()
	core.LogInfo("rendered %d frames (%.1f fps, %.3f ms), %d commands dispatched, %d skipped",
		e.Renderer().Metrics().Frames(), fps, ms, total.Dispatched, total.Skipped)
	return nil
}

// Shutdown stops a running engine and releases the systems. It is safe to
// call from another goroutine, e.g. a signal handler.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.currentStage == EngineStageShuttingDown {
		e.mu.Unlock()
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			return err
		}
	}
	return e.systemManager.Shutdown()
}
