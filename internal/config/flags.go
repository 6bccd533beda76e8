package config

import "flag"

var (
	flagConfig         = flag.String("config", "", "Path to config file")
	flagDebug          = flag.Bool("debug", false, "Enable debug logging")
	flagWorkers        = flag.Int("workers", 0, "Mesh worker count (0 keeps the config value)")
	flagBlocksPerFrame = flag.Int("blocks-per-frame", 0, "Dirty blocks rebuilt per frame")
	flagFrames         = flag.Int("frames", 0, "Frames to simulate")
	flagSaveConfig     = flag.String("save-config", "", "Write the effective config to this path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SavePath returns the path given via --save-config, or "".
func SavePath() string {
	return *flagSaveConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Workers.Count = *flagWorkers
	}
	if *flagBlocksPerFrame > 0 {
		cfg.Terrain.BlocksPerFrame = *flagBlocksPerFrame
	}
	if *flagFrames > 0 {
		cfg.Sim.Frames = *flagFrames
	}
}
