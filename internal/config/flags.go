package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagTerrain = flag.String("terrain", "", "Terrain source: \"procedural\" or a .bt file")
	flagFrames  = flag.Int("frames", 0, "Number of frames to fly")
	flagBudget  = flag.Int("budget", 0, "Triangle budget per frame")
	flagPatch   = flag.Int("patch", 0, "Patch size in grid cells")
	flagSink    = flag.String("sink", "", "Render sink: stats, stl or preview")
	flagOutput  = flag.String("output", "", "STL output path or preview directory")
	flagWatch   = flag.Bool("watch", false, "Reload LOD tuning when the config file changes")
	flagWrite   = flag.String("write-config", "", "Write the effective config to this path (.yaml or .toml) and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WatchEnabled reports whether -watch was given.
func WatchEnabled() bool {
	return *flagWatch
}

// WriteConfigPath returns the -write-config destination, if any.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagTerrain != "" {
		cfg.Terrain.Source = *flagTerrain
	}
	if *flagFrames > 0 {
		cfg.Render.Frames = *flagFrames
	}
	if *flagBudget > 0 {
		cfg.LOD.TriangleBudget = *flagBudget
	}
	if *flagPatch > 0 {
		cfg.LOD.PatchSize = *flagPatch
	}
	if *flagSink != "" {
		cfg.Render.Sink = *flagSink
	}
	if *flagOutput != "" {
		cfg.Render.Output = *flagOutput
	}
}
