// Package viewer implements the headless fly-by loop that drives the
// landscape LOD from a configured camera orbit.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/roamscape/internal/config"
	"github.com/Faultbox/roamscape/internal/engine/camera"
	"github.com/Faultbox/roamscape/internal/engine/frustum"
	"github.com/Faultbox/roamscape/internal/engine/render"
	"github.com/Faultbox/roamscape/internal/engine/roam"
	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/math"
)

// minClearance keeps the eye this far above the ground, in world units.
const minClearance = 2

// Viewer owns the terrain, the landscape and the camera for one run.
type Viewer struct {
	cfg       *config.Config
	log       *zap.Logger
	heights   *terrain.Heightfield
	landscape *roam.Landscape
	camera    *camera.OrbitCamera
	sink      terrain.RenderSink
	stats     *render.StatsSink

	watchPath string
	tuning    chan config.LODConfig
}

// Summary reports what a Run did.
type Summary struct {
	Frames        int
	Splits        int
	Merges        int
	Errors        int
	LastTriangles int
	MaxTriangles  int
}

// New loads the terrain and builds the landscape described by cfg.
func New(cfg *config.Config, log *zap.Logger) (*Viewer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("initializing viewer",
		zap.String("terrain", cfg.Terrain.Source),
		zap.Int("patch_size", cfg.LOD.PatchSize),
		zap.Int("viewports", cfg.Camera.Viewports),
		zap.String("sink", cfg.Render.Sink))

	heights, err := loadTerrain(cfg.Terrain, cfg.LOD.PatchSize, log)
	if err != nil {
		return nil, err
	}
	return newViewer(cfg, log, heights)
}

func newViewer(cfg *config.Config, log *zap.Logger, heights *terrain.Heightfield) (*Viewer, error) {
	v := &Viewer{
		cfg:     cfg,
		log:     log,
		heights: heights,
		stats:   render.NewStatsSink(log.Named("stats"), max(cfg.Render.Frames/10, 1)),
	}

	v.camera = camera.NewOrbitCamera()
	v.camera.FovY = cfg.Camera.FovDegrees * math32.Pi / 180
	v.camera.Aspect = cfg.Camera.Aspect
	v.camera.Near = cfg.Camera.Near
	v.camera.Far = cfg.Camera.Far
	v.camera.OrbitSpeed = cfg.Camera.OrbitSpeed
	v.camera.MaxDistance = math32.Max(v.camera.MaxDistance, cfg.Camera.Far)

	extent := v.extent()
	v.camera.FitToBounds(extent)
	if cfg.Camera.OrbitDistance > 0 {
		v.camera.SetDistance(cfg.Camera.OrbitDistance)
	}
	if cfg.Camera.OrbitHeight > 0 {
		v.camera.SetHeight(cfg.Camera.OrbitHeight)
	}

	sinks := render.Multi{v.stats}
	switch cfg.Render.Sink {
	case config.SinkSTL:
		sinks = append(sinks, render.NewSTLSink(cfg.Render.Output))
	case config.SinkPreview:
		preview := render.NewPreviewSink(cfg.Render.Output, "roam", extent)
		preview.Every = max(cfg.Render.Frames/8, 1)
		sinks = append(sinks, preview)
	}
	v.sink = sinks

	var err error
	v.landscape, err = roam.NewLandscape(heights, roam.Options{
		PatchSize:      cfg.LOD.PatchSize,
		DetailScale:    cfg.LOD.DetailScale,
		SizeWeight:     cfg.LOD.SizeWeight,
		SplitThreshold: cfg.LOD.SplitThreshold,
		Projections:    v.camera.Projections(cfg.Camera.Viewports),
		Appearance:     tileNamer{},
		Sink:           v.sink,
		Logger:         log.Named("roam"),
		Debug:          cfg.LOD.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create landscape: %w", err)
	}

	log.Info("viewer initialized",
		zap.Int("patches", len(v.landscape.Patches())),
		zap.Int("triangles", v.landscape.TriangleCount()))
	return v, nil
}

// Landscape returns the landscape driven by the viewer.
func (v *Viewer) Landscape() *roam.Landscape {
	return v.landscape
}

// WatchConfig makes Run reload LOD tuning from path whenever the file changes.
func (v *Viewer) WatchConfig(path string) {
	v.watchPath = path
}

// Run flies the configured number of frames or until ctx is cancelled.
// With a watched config, the watcher runs alongside the fly-by and stops
// with it.
func (v *Viewer) Run(ctx context.Context) (Summary, error) {
	if v.watchPath == "" {
		return v.fly(ctx)
	}

	v.tuning = make(chan config.LODConfig, 1)
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return config.Watch(gctx, v.watchPath, v.log.Named("config"), func(c *config.Config) {
			// Keep only the newest tuning.
			select {
			case <-v.tuning:
			default:
			}
			v.tuning <- c.LOD
		})
	})

	var sum Summary
	g.Go(func() error {
		defer stop()
		var err error
		sum, err = v.fly(gctx)
		return err
	})

	err := g.Wait()
	return sum, err
}

func (v *Viewer) fly(ctx context.Context) (Summary, error) {
	var sum Summary
	budget := v.cfg.LOD.TriangleBudget

	lastLog := time.Now()
	start := lastLog
	v.log.Info("starting fly-by", zap.Int("frames", v.cfg.Render.Frames), zap.Int("budget", budget))

	for frame := range v.cfg.Render.Frames {
		if err := ctx.Err(); err != nil {
			v.log.Info("fly-by interrupted", zap.Int("frame", frame))
			return sum, err
		}

		select {
		case lod := <-v.tuning:
			v.landscape.SetTuning(lod.DetailScale, lod.SizeWeight, lod.SplitThreshold)
			budget = lod.TriangleBudget
			v.log.Info("lod tuning changed",
				zap.Float32("detail_scale", lod.DetailScale),
				zap.Float32("size_weight", lod.SizeWeight),
				zap.Float32("split_threshold", lod.SplitThreshold),
				zap.Int("budget", budget))
		default:
		}

		// 1. Move the camera. Lifting the eye over high ground keeps the
		// orbit's view direction.
		v.camera.Advance()
		if err := v.landscape.SetView(v.eye(), v.camera.Direction()); err != nil {
			var dce *frustum.DegenerateCameraError
			if !errors.As(err, &dce) {
				return sum, fmt.Errorf("frame %d: %w", frame, err)
			}
			sum.Errors++
		}

		// 2. Refine
		stats, err := v.landscape.UpdateFrame(budget)
		if err != nil {
			sum.Errors++
			v.log.Warn("frame update had failures", zap.Int("frame", frame), zap.Error(err))
		}
		sum.Splits += stats.Splits
		sum.Merges += stats.Merges

		// 3. Emit
		if _, err := v.landscape.EmitGeometry(); err != nil {
			return sum, fmt.Errorf("frame %d: %w", frame, err)
		}
		sum.Frames++

		if time.Since(lastLog) >= time.Second {
			v.log.Debug("progress",
				zap.Int("frame", frame),
				zap.Int("triangles", stats.Triangles),
				zap.Duration("elapsed", time.Since(start)))
			lastLog = time.Now()
		}
	}

	sum.LastTriangles = v.stats.LastTriangles
	sum.MaxTriangles = v.stats.MaxTriangles
	v.log.Info("fly-by finished",
		zap.Int("frames", sum.Frames),
		zap.Int("splits", sum.Splits),
		zap.Int("merges", sum.Merges),
		zap.Int("errors", sum.Errors),
		zap.Float64("mean_triangles", v.stats.Mean()),
		zap.Duration("elapsed", time.Since(start)))
	return sum, nil
}

// Close releases viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
}

// eye returns the orbit position lifted clear of the ground.
func (v *Viewer) eye() math.Vec3 {
	p := v.camera.Position()
	ground := v.heights.InterpolatedHeight(p.X, p.Z)
	p.Y = math32.Max(p.Y, ground+minClearance)
	return p
}

// extent returns the world box covered by the height samples.
func (v *Viewer) extent() math.AABB {
	w, d := v.heights.GridDimensions()
	dx, dy := v.heights.GridStep()
	minH, maxH := v.heights.HeightRange()
	return math.AABB{
		Min: math.Vec3{X: 0, Y: minH, Z: 0},
		Max: math.Vec3{X: float32(w-1) * dx, Y: maxH, Z: float32(d-1) * dy},
	}
}

// tileNamer gives every patch a stable material name.
type tileNamer struct{}

func (tileNamer) CreateAppearance(tileX, tileY int) terrain.Appearance {
	return fmt.Sprintf("tile_%d_%d", tileX, tileY)
}
