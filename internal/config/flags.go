package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagWorkers      = flag.Int("workers", 0, "Mesh worker count")
	flagScheme       = flag.String("scheme", "", "Tiling scheme (geographic or web-mercator)")
	flagExaggeration = flag.Float64("exaggeration", 0, "Terrain height exaggeration")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Pool.Workers = *flagWorkers
	}
	if *flagScheme != "" {
		cfg.Terrain.TilingScheme = *flagScheme
	}
	if *flagExaggeration > 0 {
		cfg.Terrain.Exaggeration = *flagExaggeration
	}
}
