// Package config handles configuration loading and management.
package config

import "runtime"

// Config holds all settings.
type Config struct {
	Pool    PoolConfig    `yaml:"pool"`
	Terrain TerrainConfig `yaml:"terrain"`
	Logging LoggingConfig `yaml:"logging"`
}

// PoolConfig holds mesh worker pool settings.
type PoolConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// TerrainConfig holds tiling and meshing settings.
type TerrainConfig struct {
	TilingScheme               string  `yaml:"tiling_scheme"` // "geographic" or "web-mercator"
	Exaggeration               float64 `yaml:"exaggeration"`
	ExaggerationRelativeHeight float64 `yaml:"exaggeration_relative_height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Workers: runtime.NumCPU(),
		},
		Terrain: TerrainConfig{
			TilingScheme:               "geographic",
			Exaggeration:               1,
			ExaggerationRelativeHeight: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
