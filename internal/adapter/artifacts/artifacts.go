// Package artifacts writes the files produced by one estimate: the ensemble
// PGA raster, optional per-model and intensity rasters, and the weights file.
package artifacts

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

// ErrInvalidName is returned when an event name sanitizes to nothing.
var ErrInvalidName = errors.New("event name has no usable characters")

// RasterWriter persists one single-band raster.
type RasterWriter interface {
	WriteRaster(path string, r *grid.MemoryRaster) error
}

// Options selects the optional outputs.
type Options struct {
	SavePerModel       bool
	ConvertToIntensity bool
}

// Paths lists the files written for one estimate. Empty fields were not
// requested.
type Paths struct {
	PGA            string
	Weights        string
	PerModel       []string
	Intensity      string
	IntensityLevel string
}

// All returns every written path, ensemble raster first.
func (p Paths) All() []string {
	out := []string{p.PGA, p.Weights}
	out = append(out, p.PerModel...)
	for _, s := range []string{p.Intensity, p.IntensityLevel} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Store writes estimate outputs under one directory.
type Store struct {
	dir    string
	writer RasterWriter
	opts   Options
	logger *slog.Logger
}

// NewStore creates a Store writing into dir.
func NewStore(dir string, writer RasterWriter, opts Options, logger *slog.Logger) *Store {
	return &Store{dir: dir, writer: writer, opts: opts, logger: logger}
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write stores the outputs of res under the sanitized event name.
func (s *Store) Write(name string, res *engine.Result) (Paths, error) {
	base := domain.SanitizeName(name)
	if base == "" {
		return Paths{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	var paths Paths
	nan := math.NaN()

	paths.PGA = s.path(base + "_PGA.tif")
	if err := s.writer.WriteRaster(paths.PGA, raster(res.Grid, res.PGA, &nan)); err != nil {
		return paths, fmt.Errorf("write ensemble raster: %w", err)
	}

	if s.opts.SavePerModel {
		for _, m := range res.Models {
			p := s.path(fmt.Sprintf("%s_PGA_%s.tif", base, m.Model))
			if err := s.writer.WriteRaster(p, raster(res.Grid, m.PGA, &nan)); err != nil {
				return paths, fmt.Errorf("write %s raster: %w", m.Model, err)
			}
			paths.PerModel = append(paths.PerModel, p)
		}
	}

	paths.Weights = s.path(base + "_GMPE_weights.txt")
	if err := writeWeightsFile(paths.Weights, res.WeightList()); err != nil {
		return paths, err
	}

	if s.opts.ConvertToIntensity {
		paths.Intensity = s.path(base + "_IntensityI.tif")
		if err := s.writer.WriteRaster(paths.Intensity, raster(res.Grid, domain.PGAToIntensity(res.PGA), &nan)); err != nil {
			return paths, fmt.Errorf("write intensity raster: %w", err)
		}
		paths.IntensityLevel = s.path(base + "_IntensityLevel.tif")
		if err := s.writer.WriteRaster(paths.IntensityLevel, raster(res.Grid, domain.ClassifyIntensity(res.PGA), nil)); err != nil {
			return paths, fmt.Errorf("write intensity level raster: %w", err)
		}
	}

	s.logger.Info("artifacts written", "run_id", res.RunID, "dir", s.dir, "files", len(paths.All()))
	return paths, nil
}

func (s *Store) path(file string) string {
	return filepath.Join(s.dir, file)
}

func raster(g *grid.Grid, data []float64, nodata *float64) *grid.MemoryRaster {
	return &grid.MemoryRaster{
		Width:     g.Width,
		Height:    g.Height,
		Transform: g.Transform,
		CRS:       g.CRS,
		Data:      data,
		NoData:    nodata,
	}
}

func writeWeightsFile(path string, weights []domain.ModelWeight) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weights file: %w", err)
	}
	if err := WriteWeights(f, weights); err != nil {
		_ = f.Close()
		return fmt.Errorf("write weights file: %w", err)
	}
	return f.Close()
}
