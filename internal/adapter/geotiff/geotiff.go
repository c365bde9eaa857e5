// Package geotiff reads site rasters and writes output rasters through GDAL.
package geotiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Opener opens GDAL-readable rasters as grid site sources.
type Opener struct {
	logger *slog.Logger
}

// NewOpener registers the GDAL drivers and returns an Opener.
func NewOpener(logger *slog.Logger) *Opener {
	register()
	return &Opener{logger: logger}
}

// Open implements grid.SiteOpener. Only the first band is read.
func (o *Opener) Open(ctx context.Context, path string) (grid.SiteSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	st := ds.Structure()
	if st.NBands < 1 {
		_ = ds.Close()
		return nil, fmt.Errorf("open %s: raster has no bands", path)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("open %s: geotransform: %w", path, err)
	}

	src := &source{
		ds:     ds,
		band:   ds.Bands()[0],
		width:  st.SizeX,
		height: st.SizeY,
		gt:     grid.FromGeoTransform(gt),
		proj:   ds.Projection(),
	}
	src.nodata, src.hasNoData = src.band.NoData()

	o.logger.Debug("site raster opened",
		"path", path,
		"width", src.width,
		"height", src.height,
		"nodata", src.hasNoData,
	)
	return src, nil
}

// Warp implements grid.Warper with GDAL's warper: the site raster is
// reprojected into target.CRS over target.Bounds with bilinear resampling.
// Source no-data is honoured and empty cells come back as NaN.
func (o *Opener) Warp(ctx context.Context, path string, target grid.WarpTarget) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	if strings.TrimSpace(ds.Projection()) == "" {
		return nil, fmt.Errorf("%w: %s", grid.ErrUndefinedCRS, path)
	}

	out, err := ds.Warp("", warpSwitches(target))
	if err != nil {
		return nil, fmt.Errorf("warp %s: %w", path, err)
	}
	defer out.Close()

	buf := make([]float64, target.Width*target.Height)
	if err := out.Bands()[0].Read(0, 0, buf, target.Width, target.Height); err != nil {
		return nil, fmt.Errorf("read warped %s: %w", path, err)
	}

	o.logger.Debug("site raster warped",
		"path", path,
		"width", target.Width,
		"height", target.Height,
	)
	return buf, nil
}

func warpSwitches(t grid.WarpTarget) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"-of", "MEM",
		"-t_srs", t.CRS,
		"-te", f(t.Bounds.Min.X), f(t.Bounds.Min.Y), f(t.Bounds.Max.X), f(t.Bounds.Max.Y),
		"-ts", strconv.Itoa(t.Width), strconv.Itoa(t.Height),
		"-r", "bilinear",
		"-ot", "Float64",
		"-dstnodata", "nan",
	}
}

type source struct {
	ds        *godal.Dataset
	band      godal.Band
	width     int
	height    int
	gt        grid.Affine
	proj      string
	nodata    float64
	hasNoData bool
}

func (s *source) Size() (int, int)          { return s.width, s.height }
func (s *source) GeoTransform() grid.Affine { return s.gt }
func (s *source) Projection() string        { return s.proj }
func (s *source) NoData() (float64, bool)   { return s.nodata, s.hasNoData }

func (s *source) ReadWindow(x, y, w, h int) ([]float64, error) {
	buf := make([]float64, w*h)
	if err := s.band.Read(x, y, buf, w, h); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *source) Close() error {
	return s.ds.Close()
}

// Writer writes single-band Float32 GeoTIFFs.
type Writer struct {
	creation []string
}

// NewWriter registers the GDAL drivers and returns a Writer producing tiled,
// LZW-compressed GeoTIFFs.
func NewWriter() *Writer {
	register()
	return &Writer{creation: []string{"TILED=YES", "COMPRESS=LZW"}}
}

// WriteRaster writes r to path, replacing any existing file. The nodata tag
// is set only when r.NoData is non-nil.
func (w *Writer) WriteRaster(path string, r *grid.MemoryRaster) (err error) {
	if r.Width <= 0 || r.Height <= 0 || len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("write %s: %d values for %dx%d raster", path, len(r.Data), r.Width, r.Height)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("write %s: %w", path, err)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, r.Width, r.Height,
		godal.CreationOption(w.creation...))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := ds.SetGeoTransform(r.Transform.GeoTransform()); err != nil {
		return fmt.Errorf("write %s: geotransform: %w", path, err)
	}
	if err := setCRS(ds, r.CRS); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	band := ds.Bands()[0]
	if r.NoData != nil {
		if err := band.SetNoData(*r.NoData); err != nil {
			return fmt.Errorf("write %s: nodata: %w", path, err)
		}
	}

	buf := make([]float32, len(r.Data))
	for i, v := range r.Data {
		buf[i] = float32(v)
	}
	if err := band.Write(0, 0, buf, r.Width, r.Height); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func setCRS(ds *godal.Dataset, def string) error {
	def = strings.TrimSpace(def)
	if def == "" {
		return nil
	}
	var (
		sr  *godal.SpatialRef
		err error
	)
	if strings.HasPrefix(def, "+") {
		sr, err = godal.NewSpatialRefFromProj4(def)
	} else {
		sr, err = godal.NewSpatialRefFromWKT(def)
	}
	if err != nil {
		return fmt.Errorf("parse crs: %w", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("set crs: %w", err)
	}
	return nil
}
