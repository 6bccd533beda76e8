// Package config handles terrain engine configuration loading and management.
package config

import (
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// Config holds all engine settings.
type Config struct {
	Map     MapConfig     `yaml:"map"`
	Terrain TerrainConfig `yaml:"terrain"`
	Workers WorkersConfig `yaml:"workers"`
	Sim     SimConfig     `yaml:"sim"`
	Logging LoggingConfig `yaml:"logging"`
}

// MapConfig describes the gridded map area.
type MapConfig struct {
	Bounds     BoundsConfig  `yaml:"bounds"`
	Rows       int           `yaml:"rows"`
	Cols       int           `yaml:"cols"`
	CellSize   float32       `yaml:"cell_size"`  // map units per grid cell
	Resolution Vec3Config    `yaml:"resolution"` // scene units per column, height unit, row
	Layers     []LayerConfig `yaml:"layers"`
}

// BoundsConfig is a map-coordinate rectangle.
type BoundsConfig struct {
	MinX float32 `yaml:"min_x"`
	MinY float32 `yaml:"min_y"`
	MaxX float32 `yaml:"max_x"`
	MaxY float32 `yaml:"max_y"`
}

// Vec3Config is a plain three-component vector.
type Vec3Config struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// LayerConfig holds the render parameters of one terrain layer.
type LayerConfig struct {
	Name         string  `yaml:"name"`
	Material     string  `yaml:"material"`
	HeightOffset float32 `yaml:"height_offset"`
}

// TerrainConfig holds mesh tree and LOD settings.
type TerrainConfig struct {
	BlockSize        int           `yaml:"block_size"`
	MaxMeshTreeLevel int           `yaml:"max_mesh_tree_level"`
	BlocksPerFrame   int           `yaml:"blocks_per_frame"`
	LODCutoff        float32       `yaml:"lod_cutoff"` // 0 derives it from block size and resolution
	Quality          QualityConfig `yaml:"quality"`
}

// QualityConfig holds the per-level RTIN threshold policy.
type QualityConfig struct {
	BaseThreshold    float32 `yaml:"base_threshold"`
	Growth           float32 `yaml:"growth"`
	FullDetailLevel0 bool    `yaml:"full_detail_level0"`
}

// WorkersConfig sizes the mesh worker pool.
type WorkersConfig struct {
	Count int `yaml:"count"` // 0 uses one worker per CPU
}

// SimConfig drives the headless frame loop.
type SimConfig struct {
	Frames      int     `yaml:"frames"`
	Seed        int64   `yaml:"seed"`
	Workers     int     `yaml:"workers"`      // walking workers spawned on every reset
	WorkerSpeed float32 `yaml:"worker_speed"` // scene units per second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Console bool   `yaml:"console"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Map: MapConfig{
			Bounds:     BoundsConfig{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512},
			Rows:       512,
			Cols:       512,
			CellSize:   1,
			Resolution: Vec3Config{X: 1, Y: 1, Z: 1},
			Layers: []LayerConfig{
				{Name: "elevation", Material: "dirt", HeightOffset: 0},
				{Name: "structure", Material: "grass", HeightOffset: -1},
			},
		},
		Terrain: TerrainConfig{
			BlockSize:        64,
			MaxMeshTreeLevel: 4,
			BlocksPerFrame:   16,
			Quality: QualityConfig{
				BaseThreshold: 0.125,
				Growth:        1.5,
			},
		},
		Sim: SimConfig{
			Frames:      120,
			Seed:        1,
			Workers:     8,
			WorkerSpeed: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// WorkerCount returns the effective number of mesh workers.
func (c *Config) WorkerCount() int {
	if c.Workers.Count > 0 {
		return c.Workers.Count
	}
	return runtime.NumCPU()
}

// LODCutoff returns the level-0 LOD cutoff distance in scene units.
func (c *Config) LODCutoff() float32 {
	if c.Terrain.LODCutoff > 0 {
		return c.Terrain.LODCutoff
	}
	res := c.Map.Resolution.X
	if res <= 0 {
		res = 1
	}
	return float32(c.Terrain.BlockSize*4) * res
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Map.Rows <= 0 || c.Map.Cols <= 0 {
		err = multierr.Append(err, fmt.Errorf("map: rows and cols must be positive, got %dx%d", c.Map.Rows, c.Map.Cols))
	}
	if c.Map.Bounds.MaxX <= c.Map.Bounds.MinX || c.Map.Bounds.MaxY <= c.Map.Bounds.MinY {
		err = multierr.Append(err, fmt.Errorf("map: bounds %+v are empty", c.Map.Bounds))
	}
	if c.Map.CellSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("map: cell_size must be positive, got %v", c.Map.CellSize))
	}
	if r := c.Map.Resolution; r.X <= 0 || r.Y <= 0 || r.Z <= 0 {
		err = multierr.Append(err, fmt.Errorf("map: resolution must be positive, got %+v", r))
	}
	if len(c.Map.Layers) == 0 {
		err = multierr.Append(err, fmt.Errorf("map: at least one layer is required"))
	}
	seen := make(map[string]bool, len(c.Map.Layers))
	for _, l := range c.Map.Layers {
		if seen[l.Name] {
			err = multierr.Append(err, fmt.Errorf("map: duplicate layer %q", l.Name))
		}
		seen[l.Name] = true
	}

	bs := c.Terrain.BlockSize
	if bs < 1 || bs&(bs-1) != 0 {
		err = multierr.Append(err, fmt.Errorf("terrain: block_size must be a power of two, got %d", bs))
	}
	if c.Terrain.MaxMeshTreeLevel < 0 {
		err = multierr.Append(err, fmt.Errorf("terrain: max_mesh_tree_level must not be negative"))
	}
	if c.Terrain.BlocksPerFrame <= 0 {
		err = multierr.Append(err, fmt.Errorf("terrain: blocks_per_frame must be positive, got %d", c.Terrain.BlocksPerFrame))
	}
	if c.Terrain.LODCutoff < 0 {
		err = multierr.Append(err, fmt.Errorf("terrain: lod_cutoff must not be negative"))
	}
	if c.Terrain.Quality.Growth <= 0 {
		err = multierr.Append(err, fmt.Errorf("terrain: quality.growth must be positive, got %v", c.Terrain.Quality.Growth))
	}
	if c.Sim.Workers < 0 || c.Sim.WorkerSpeed < 0 {
		err = multierr.Append(err, fmt.Errorf("sim: workers and worker_speed must not be negative"))
	}
	if c.Workers.Count < 0 {
		err = multierr.Append(err, fmt.Errorf("workers: count must not be negative"))
	}
	return err
}
