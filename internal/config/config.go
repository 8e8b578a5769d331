// Package config handles roamview configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/internal/logger"
)

// ProceduralTerrain selects the built-in diamond-square generator as terrain source.
const ProceduralTerrain = "procedural"

// Render sink names.
const (
	SinkStats   = "stats"
	SinkSTL     = "stl"
	SinkPreview = "preview"
)

// Config holds all roamview settings.
type Config struct {
	path string // file the config was loaded from, if any

	Terrain TerrainConfig `yaml:"terrain" toml:"terrain"`
	LOD     LODConfig     `yaml:"lod" toml:"lod"`
	Camera  CameraConfig  `yaml:"camera" toml:"camera"`
	Render  RenderConfig  `yaml:"render" toml:"render"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// TerrainConfig selects and shapes the height data.
type TerrainConfig struct {
	Source      string            `yaml:"source" toml:"source"` // "procedural" or a .bt file, cropped to whole patches
	Size        int               `yaml:"size" toml:"size"`     // Samples per side of procedural terrain
	Roughness   float32           `yaml:"roughness" toml:"roughness"`
	Seed        uint64            `yaml:"seed" toml:"seed"`
	GridStep    float32           `yaml:"grid_step" toml:"grid_step"`
	HeightScale float32           `yaml:"height_scale" toml:"height_scale"`
	ColorRamp   []terrain.RampKey `yaml:"color_ramp" toml:"color_ramp"` // Empty uses the default ramp
	Textured    bool              `yaml:"textured" toml:"textured"`
}

// LODConfig holds level-of-detail tuning.
type LODConfig struct {
	PatchSize      int     `yaml:"patch_size" toml:"patch_size"`
	DetailScale    float32 `yaml:"detail_scale" toml:"detail_scale"`
	SizeWeight     float32 `yaml:"size_weight" toml:"size_weight"`
	SplitThreshold float32 `yaml:"split_threshold" toml:"split_threshold"`
	TriangleBudget int     `yaml:"triangle_budget" toml:"triangle_budget"` // Max triangle delta per frame
	Debug          bool    `yaml:"debug" toml:"debug"`                     // Panic on invalid split requests
}

// CameraConfig holds the lens and the fly-by orbit.
type CameraConfig struct {
	FovDegrees    float32 `yaml:"fov_degrees" toml:"fov_degrees"`
	Aspect        float32 `yaml:"aspect" toml:"aspect"`
	Near          float32 `yaml:"near" toml:"near"`
	Far           float32 `yaml:"far" toml:"far"`
	Viewports     int     `yaml:"viewports" toml:"viewports"`           // Side-by-side split of the aspect
	OrbitDistance float32 `yaml:"orbit_distance" toml:"orbit_distance"` // 0 fits the terrain
	OrbitHeight   float32 `yaml:"orbit_height" toml:"orbit_height"`     // Eye height above the orbit center, 0 fits the terrain
	OrbitSpeed    float32 `yaml:"orbit_speed" toml:"orbit_speed"`       // Radians per frame
}

// RenderConfig selects where emitted geometry goes.
type RenderConfig struct {
	Sink   string `yaml:"sink" toml:"sink"`     // "stats", "stl" or "preview"
	Output string `yaml:"output" toml:"output"` // STL file path or preview directory
	Frames int    `yaml:"frames" toml:"frames"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level" toml:"level"`
	Quiet       bool   `yaml:"quiet" toml:"quiet"` // No console output
	LogFile     string `yaml:"log_file" toml:"log_file"`
	FileFormat  string `yaml:"file_format" toml:"file_format"` // "console" or "json"
	MaxSizeMB   int    `yaml:"max_size_mb" toml:"max_size_mb"` // Rotate after this many megabytes
	MaxBackups  int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days" toml:"max_age_days"`
	Compression bool   `yaml:"compression" toml:"compression"` // Gzip rotated files
}

// LoggerOptions converts the logging section for logger.Init.
func (l LoggingConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:   l.Level,
		Console: !l.Quiet,
		File: logger.FileConfig{
			Path:       l.LogFile,
			Encoding:   l.FileFormat,
			MaxSizeMB:  l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAgeDays: l.MaxAgeDays,
			Compress:   l.Compression,
		},
	}
}

// Path returns the file the config was loaded from, or "" for pure defaults.
func (c *Config) Path() string {
	return c.path
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			Source:      ProceduralTerrain,
			Size:        257,
			Roughness:   0.55,
			Seed:        1,
			GridStep:    1,
			HeightScale: 40,
			Textured:    false,
		},
		LOD: LODConfig{
			PatchSize:      32,
			DetailScale:    1,
			SizeWeight:     0.1,
			SplitThreshold: 0.02,
			TriangleBudget: 256,
		},
		Camera: CameraConfig{
			FovDegrees: 60,
			Aspect:     4.0 / 3,
			Near:       1,
			Far:        2000,
			Viewports:  1,
			OrbitSpeed: 0.02,
		},
		Render: RenderConfig{
			Sink:   SinkStats,
			Output: "terrain.stl",
			Frames: 120,
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileFormat:  logger.EncodingConsole,
			MaxSizeMB:   50,
			MaxBackups:  3,
			MaxAgeDays:  7,
			Compression: true,
		},
	}
}

// Validate reports settings the landscape cannot be built with.
func (c *Config) Validate() error {
	var errs []error

	p := c.LOD.PatchSize
	if p < 2 || bits.OnesCount(uint(p)) != 1 {
		errs = append(errs, fmt.Errorf("lod.patch_size %d is not a power of two >= 2", p))
	} else if c.Terrain.Source == ProceduralTerrain {
		n := c.Terrain.Size - 1
		if n < p || bits.OnesCount(uint(n)) != 1 {
			errs = append(errs, fmt.Errorf("terrain.size %d must be 2^k+1 and at least lod.patch_size+1", c.Terrain.Size))
		}
	}
	if c.Terrain.Source == "" {
		errs = append(errs, errors.New("terrain.source is empty"))
	}
	if c.Terrain.GridStep <= 0 {
		errs = append(errs, fmt.Errorf("terrain.grid_step %v must be positive", c.Terrain.GridStep))
	}
	if c.LOD.TriangleBudget < 1 {
		errs = append(errs, fmt.Errorf("lod.triangle_budget %d must be positive", c.LOD.TriangleBudget))
	}

	cam := c.Camera
	if cam.Near <= 0 || cam.Far <= cam.Near {
		errs = append(errs, fmt.Errorf("camera near %v / far %v is an empty depth range", cam.Near, cam.Far))
	}
	if cam.FovDegrees <= 0 || cam.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov_degrees %v out of (0, 180)", cam.FovDegrees))
	}
	if cam.Aspect <= 0 {
		errs = append(errs, fmt.Errorf("camera.aspect %v must be positive", cam.Aspect))
	}
	if cam.Viewports < 1 {
		errs = append(errs, fmt.Errorf("camera.viewports %d must be at least 1", cam.Viewports))
	}

	switch c.Render.Sink {
	case SinkStats:
	case SinkSTL, SinkPreview:
		if c.Render.Output == "" {
			errs = append(errs, fmt.Errorf("render.output is required for the %s sink", c.Render.Sink))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown render.sink %q", c.Render.Sink))
	}
	if c.Render.Frames < 1 {
		errs = append(errs, fmt.Errorf("render.frames %d must be positive", c.Render.Frames))
	}

	log := c.Logging
	if _, err := logger.ParseLevel(log.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch log.FileFormat {
	case "", logger.EncodingConsole, logger.EncodingJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown logging.file_format %q", log.FileFormat))
	}
	if log.LogFile != "" && log.MaxSizeMB < 1 {
		errs = append(errs, fmt.Errorf("logging.max_size_mb %d must be positive", log.MaxSizeMB))
	}
	if log.MaxBackups < 0 || log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("logging.max_backups and logging.max_age_days must not be negative"))
	}

	return errors.Join(errs...)
}
