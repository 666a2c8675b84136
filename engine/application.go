package engine

import (
	"github.com/spaghettifunk/renderqueue/engine/config"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// Path of the TOML configuration file. When set, the file is loaded on
	// New and watched for changes while running.
	ConfigPath string
	// Used when ConfigPath is empty. Defaults to config.Default().
	Config *config.Config
}
