package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer/commands"
	"github.com/spaghettifunk/renderqueue/engine/resources"
)

type LogConfig struct {
	// debug, info, warn or error.
	Level string `toml:"level"`
}

type PipelineConfig struct {
	// Records per packet and per frame.
	PacketCapacity int `toml:"packet_capacity"`
	// Arena bytes reserved per record.
	CommandSize int `toml:"command_size"`
	// report or panic.
	FailurePolicy string `toml:"failure_policy"`
}

type RegistryConfig struct {
	MaxRenderTargets uint32 `toml:"max_render_targets"`
	MaxShaders       uint32 `toml:"max_shaders"`
	MaxVertexSources uint32 `toml:"max_vertex_sources"`
	MaxMaterials     uint32 `toml:"max_materials"`
}

type TestbedConfig struct {
	// Frames to render before exiting, 0 runs until interrupted.
	Frames        int    `toml:"frames"`
	DrawsPerFrame int    `toml:"draws_per_frame"`
	Materials     int    `toml:"materials"`
	Seed          uint64 `toml:"seed"`
}

// Config is the content of the engine's TOML configuration file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Registry RegistryConfig `toml:"registry"`
	Testbed  TestbedConfig  `toml:"testbed"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Pipeline: PipelineConfig{
			PacketCapacity: commands.DEFAULT_MAX_ELEMENTS,
			CommandSize:    commands.DEFAULT_COMMAND_SIZE,
			FailurePolicy:  core.FailurePolicyReport.String(),
		},
		Registry: RegistryConfig{
			MaxRenderTargets: 16,
			MaxShaders:       256,
			MaxVertexSources: 4096,
			MaxMaterials:     4096,
		},
		Testbed: TestbedConfig{
			Frames:        600,
			DrawsPerFrame: 512,
			Materials:     32,
			Seed:          1,
		},
	}
}

// Load reads the file at path on top of the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("config: line %d, column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if _, err := c.PacketConfig(); err != nil {
		return err
	}
	r := c.Registry
	if r.MaxRenderTargets == 0 || r.MaxShaders == 0 || r.MaxVertexSources == 0 || r.MaxMaterials == 0 {
		return fmt.Errorf("config: registry limits must be greater than 0")
	}
	if c.Testbed.Frames < 0 || c.Testbed.DrawsPerFrame < 0 || c.Testbed.Materials < 0 {
		return fmt.Errorf("config: testbed values must not be negative")
	}
	return nil
}

func (c *Config) LogLevel() core.LogLevel {
	level, err := core.ParseLogLevel(c.Log.Level)
	if err != nil {
		return core.LogLevelInfo
	}
	return level
}

func (c *Config) PacketConfig() (commands.PacketConfig, error) {
	policy, err := core.ParseFailurePolicy(c.Pipeline.FailurePolicy)
	if err != nil {
		return commands.PacketConfig{}, fmt.Errorf("config: pipeline.failure_policy: %w", err)
	}
	pc := commands.PacketConfig{
		Capacity:    c.Pipeline.PacketCapacity,
		CommandSize: c.Pipeline.CommandSize,
		Policy:      policy,
	}
	if err := pc.Validate(); err != nil {
		return commands.PacketConfig{}, fmt.Errorf("config: pipeline: %w", err)
	}
	return pc, nil
}

func (c *Config) RegistryConfig() *resources.RegistryConfig {
	return &resources.RegistryConfig{
		MaxRenderTargetCount: c.Registry.MaxRenderTargets,
		MaxShaderCount:       c.Registry.MaxShaders,
		MaxVertexSourceCount: c.Registry.MaxVertexSources,
		MaxMaterialCount:     c.Registry.MaxMaterials,
	}
}
