package systems

import (
	"github.com/spaghettifunk/renderqueue/engine/config"
	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
)

type SystemManager struct {
	RendererSystem *RendererSystem
	configWatcher  *config.Watcher
}

// NewSystemManager builds the systems from c. When configPath is not empty the
// file is watched and reloaded configurations reach the renderer between frames.
func NewSystemManager(backend renderer.Backend, c *config.Config, configPath string) (*SystemManager, error) {
	rs, err := NewRendererSystem(backend, c)
	if err != nil {
		return nil, err
	}
	sm := &SystemManager{
		RendererSystem: rs,
	}
	if configPath != "" {
		w, err := config.NewWatcher(configPath)
		if err != nil {
			core.LogError("failed to watch %s: %s", configPath, err)
			return nil, err
		}
		sm.configWatcher = w
		rs.WatchConfig(w.Changes())
	}
	return sm, nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	if sm.configWatcher != nil {
		if err := sm.configWatcher.Close(); err != nil {
			return err
		}
	}
	return nil
}
