// Package main runs the terrain pipeline headless: synthetic tiles stream
// in, random terraform edits land and workers wander while meshes are
// rebuilt and LOD is selected every frame.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rreng/internal/config"
	"github.com/Faultbox/rreng/internal/engine/terrain"
	"github.com/Faultbox/rreng/internal/game/world"
	"github.com/Faultbox/rreng/internal/logger"
)

const (
	frameTime     = time.Second / 60
	tileCells     = 128
	editEvery     = 20 // frames between terraform edits
	progressEvery = 60 // frames between progress reports

	viewW, viewH = 1280, 720
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	opts := logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Terrain Sim ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if path := config.SavePath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			logger.Error("save config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("path", path))
	}

	if err := run(cfg); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("simulation finished")
}

func run(cfg *config.Config) error {
	svc, err := world.NewTerrainService(cfg, nil, logger.Named("world"))
	if err != nil {
		return err
	}
	defer svc.Close()

	wopts := world.DefaultWorkerOptions()
	wopts.Count = cfg.Sim.Workers
	wopts.Speed = cfg.Sim.WorkerSpeed
	wopts.Seed = cfg.Sim.Seed
	workers := world.NewWorkerController(svc, wopts, logger.Named("workers"))

	spec, err := world.MapSpecFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := svc.Reset(spec); err != nil {
		return fmt.Errorf("reset terrain: %w", err)
	}

	tiles := newTileSource(spec, tileCells, cfg.Sim.Seed)
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))
	t, _ := svc.Terrain()
	extent := t.SceneExtent()

	start := time.Now()
	for frame := range cfg.Sim.Frames {
		// One tile per frame, like a streaming loader.
		if tl, ok := tiles.Next(); ok {
			if _, err := svc.IngestTile(terrain.LayerElevation, tl.Rect, tl.Heights); err != nil {
				return fmt.Errorf("ingest tile: %w", err)
			}
		}

		if frame > 0 && frame%editEvery == 0 {
			if err := terraform(svc, rng, extent, frame/editEvery); err != nil {
				return fmt.Errorf("terraform: %w", err)
			}
		}

		workers.Update(frameTime)
		// Slowly circle the map so LOD selection has work to do.
		svc.Camera().HandleDrag(2, 0)
		fs := svc.Frame()

		if frame%progressEvery == 0 {
			p := svc.Progress()
			logger.Info("frame",
				zap.Int("frame", frame),
				zap.Int("tiles_left", tiles.Remaining()),
				zap.Int("scheduled", fs.Scheduled),
				zap.Int("installed", fs.Installed),
				zap.Int("dirty", fs.Dirty),
				zap.Int("pending", fs.Pending),
				zap.Int("shown", fs.LOD.Shown),
				zap.Float32("progress", p.Fraction()))
		}
	}

	// Finish outstanding work so the summary reflects the final terrain.
	for svc.Store().DirtyCount() > 0 || svc.Progress().Pending > 0 {
		svc.UpdateMeshes()
		svc.Flush()
	}
	lod, _ := svc.SelectMeshes(true)
	st := svc.Scene().Stats()
	p := svc.Progress()

	walking := 0
	for _, w := range workers.Workers() {
		if w.Behaviour == world.Walking {
			walking++
		}
	}

	logger.Info("summary",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("meshes", st.Objects),
		zap.Int("visible", st.Visible),
		zap.Int("triangles", st.Triangles),
		zap.Int("lod_shown", lod.Shown),
		zap.Int("populated", p.Populated),
		zap.Int("valid", p.Valid),
		zap.Int("installed", svc.Installed()),
		zap.Int("workers_walking", walking))
	return nil
}

// terraform applies a random edit, alternating between raising a point and
// levelling a short drag. Edits land under a random pixel of the view when
// it hits the ground.
func terraform(svc *world.TerrainService, rng *rand.Rand, extent mgl32.Vec2, n int) error {
	p := mgl32.Vec2{rng.Float32() * extent.X(), rng.Float32() * extent.Y()}
	if hit, ok := svc.PickScreen(rng.Float32()*viewW, rng.Float32()*viewH, viewW, viewH); ok {
		p = mgl32.Vec2{hit.X(), hit.Z()}
	}
	if n%2 == 1 {
		_, err := svc.RaisePoint(terrain.LayerElevation, p, rng.Float32()*10-5)
		return err
	}
	end := p.Add(mgl32.Vec2{rng.Float32()*32 - 16, rng.Float32()*32 - 16})
	_, err := svc.ApplyDragEdit(terrain.LayerElevation, p, end)
	return err
}
