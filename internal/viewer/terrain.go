package viewer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/roamscape/internal/config"
	"github.com/Faultbox/roamscape/internal/engine/terrain"
	"github.com/Faultbox/roamscape/pkg/formats"
)

// loadTerrain builds the heightfield named by the terrain section: a BT file
// or a procedurally generated grid. BT grids are cropped to the largest
// area of whole patches, anchored at their south-west corner.
func loadTerrain(cfg config.TerrainConfig, patchSize int, log *zap.Logger) (*terrain.Heightfield, error) {
	var h *terrain.Heightfield
	if cfg.Source == config.ProceduralTerrain {
		var err error
		h, err = terrain.Generate(terrain.GenerateOptions{
			Size:        cfg.Size,
			Roughness:   cfg.Roughness,
			HeightScale: cfg.HeightScale,
			GridStep:    cfg.GridStep,
			Seed:        cfg.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("generating terrain: %w", err)
		}
	} else {
		bt, err := formats.ParseBTFile(cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("loading terrain %s: %w", cfg.Source, err)
		}
		log.Info("loaded BT terrain",
			zap.String("path", cfg.Source),
			zap.Stringer("version", bt.Version),
			zap.Int32("columns", bt.Columns),
			zap.Int32("rows", bt.Rows),
			zap.Bool("float", bt.Float))
		h, err = tileable(terrain.FromBT(bt), patchSize, log)
		if err != nil {
			return nil, fmt.Errorf("loading terrain %s: %w", cfg.Source, err)
		}
	}

	minH, maxH := h.HeightRange()
	ramp := terrain.DefaultColorRamp(minH, maxH)
	if len(cfg.ColorRamp) > 0 {
		var err error
		if ramp, err = terrain.NewColorRamp(cfg.ColorRamp); err != nil {
			return nil, fmt.Errorf("terrain.color_ramp: %w", err)
		}
	}
	h.SetColorRamp(ramp)
	h.SetTextured(cfg.Textured)

	w, d := h.GridDimensions()
	dx, dy := h.GridStep()
	log.Debug("terrain ready",
		zap.Int("width", w),
		zap.Int("depth", d),
		zap.Float32("step_x", dx),
		zap.Float32("step_y", dy),
		zap.Float32("min_height", minH),
		zap.Float32("max_height", maxH))
	return h, nil
}

// tileable crops h so both dimensions are a whole number of patches plus one.
func tileable(h *terrain.Heightfield, patchSize int, log *zap.Logger) (*terrain.Heightfield, error) {
	w, d := h.GridDimensions()
	tw := (w-1)/patchSize*patchSize + 1
	td := (d-1)/patchSize*patchSize + 1
	if tw < patchSize+1 || td < patchSize+1 {
		return nil, fmt.Errorf("grid %dx%d is smaller than one %d-cell patch", w, d, patchSize)
	}
	if tw == w && td == d {
		return h, nil
	}
	log.Warn("cropping terrain to whole patches",
		zap.Int("width", w),
		zap.Int("depth", d),
		zap.Int("cropped_width", tw),
		zap.Int("cropped_depth", td))
	return h.Crop(tw, td), nil
}
