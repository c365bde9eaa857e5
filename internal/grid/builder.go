package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ctessum/geom"
)

// DefaultResolutionKm is the grid cell size used when a Spec leaves it unset.
const DefaultResolutionKm = 1.0

var (
	ErrInvalidSpec  = errors.New("invalid grid spec")
	ErrSiteRaster   = errors.New("site raster")
	ErrUndefinedCRS = errors.New("site raster has no usable coordinate reference system")
)

// Spec describes the grid to build around an epicentre.
type Spec struct {
	Lon          float64
	Lat          float64
	RadiusKm     float64
	ResolutionKm float64
	SitePath     string
}

func (s Spec) withDefaults() (Spec, error) {
	if s.ResolutionKm == 0 {
		s.ResolutionKm = DefaultResolutionKm
	}
	switch {
	case !isFinite(s.Lon) || s.Lon < -180 || s.Lon > 180:
		return s, fmt.Errorf("%w: longitude %v", ErrInvalidSpec, s.Lon)
	case !isFinite(s.Lat) || s.Lat <= -90 || s.Lat >= 90:
		return s, fmt.Errorf("%w: latitude %v", ErrInvalidSpec, s.Lat)
	case !isFinite(s.RadiusKm) || s.RadiusKm <= 0:
		return s, fmt.Errorf("%w: radius %v km", ErrInvalidSpec, s.RadiusKm)
	case !isFinite(s.ResolutionKm) || s.ResolutionKm <= 0:
		return s, fmt.Errorf("%w: resolution %v km", ErrInvalidSpec, s.ResolutionKm)
	case strings.TrimSpace(s.SitePath) == "":
		return s, fmt.Errorf("%w: site raster path is required", ErrInvalidSpec)
	}
	return s, nil
}

// Builder constructs analysis grids. It is safe for concurrent use.
type Builder struct {
	opener SiteOpener
	proj   *projector
	logger *slog.Logger
}

// NewBuilder creates a Builder that reads site rasters through opener.
func NewBuilder(opener SiteOpener, logger *slog.Logger) (*Builder, error) {
	p, err := newProjector(MercatorCRS)
	if err != nil {
		return nil, err
	}
	return &Builder{opener: opener, proj: p, logger: logger}, nil
}

// Build projects the epicentre, lays out a square grid of side 2·radius and
// resamples the site raster at every cell centre.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Grid, error) {
	spec, err := spec.withDefaults()
	if err != nil {
		return nil, err
	}

	ex, ey, err := b.proj.toMetric(spec.Lon, spec.Lat)
	if err != nil {
		return nil, fmt.Errorf("project epicentre: %w", err)
	}

	radiusM := spec.RadiusKm * 1000
	res := spec.ResolutionKm * 1000
	bounds := geom.Bounds{
		Min: geom.Point{X: ex - radiusM, Y: ey - radiusM},
		Max: geom.Point{X: ex + radiusM, Y: ey + radiusM},
	}
	n := cellsAcross(2*radiusM, res)

	g := &Grid{
		Width:     n,
		Height:    n,
		Transform: FromOrigin(bounds.Min.X, bounds.Max.Y, res, res),
		CRS:       MercatorCRS,
		Lon:       make([]float64, n*n),
		Lat:       make([]float64, n*n),
	}

	xs := make([]float64, n*n)
	ys := make([]float64, n*n)
	for row := range n {
		for col := range n {
			i := g.Index(row, col)
			xs[i], ys[i] = g.CellCenter(row, col)
			g.Lon[i], g.Lat[i], err = b.proj.toGeographic(xs[i], ys[i])
			if err != nil {
				return nil, fmt.Errorf("unproject cell %d,%d: %w", row, col, err)
			}
		}
	}

	if w, ok := b.opener.(Warper); ok {
		g.Site, err = b.warpSites(ctx, w, spec.SitePath, WarpTarget{CRS: MercatorCRS, Bounds: bounds, Width: n, Height: n})
	} else {
		g.Site, err = b.sampleSites(ctx, spec.SitePath, xs, ys, n)
	}
	if err != nil {
		return nil, err
	}

	b.logger.Debug("grid built",
		"width", g.Width,
		"height", g.Height,
		"resolution_m", res,
		"site_path", spec.SitePath,
	)
	return g, nil
}

func (b *Builder) warpSites(ctx context.Context, w Warper, path string, target WarpTarget) ([]float64, error) {
	site, err := w.Warp(ctx, path, target)
	switch {
	case err == nil:
	case errors.Is(err, ErrUndefinedCRS), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: warp %s: %v", ErrSiteRaster, path, err)
	}
	if len(site) != target.Width*target.Height {
		return nil, fmt.Errorf("%w: warp %s: got %d values for %dx%d grid", ErrSiteRaster, path, len(site), target.Width, target.Height)
	}
	return site, nil
}

// sampleSites opens the site raster, reads the window covering the grid and
// resamples it at the metric cell centres (xs, ys).
func (b *Builder) sampleSites(ctx context.Context, path string, xs, ys []float64, width int) ([]float64, error) {
	src, err := b.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSiteRaster, path, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			b.logger.Warn("close site raster failed", "path", path, "error", cerr)
		}
	}()

	def := strings.TrimSpace(src.Projection())
	if def == "" {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedCRS, path)
	}
	toSource, err := b.proj.toSource(def)
	if err != nil {
		return nil, err
	}

	gt := src.GeoTransform()
	fx := make([]float64, len(xs))
	fy := make([]float64, len(xs))
	for i := range xs {
		sx, sy, err := toSource(xs[i], ys[i])
		if err != nil {
			fx[i], fy[i] = math.NaN(), math.NaN()
			continue
		}
		fx[i], fy[i], err = gt.Invert(sx, sy)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSiteRaster, path, err)
		}
	}

	win, err := readWindow(src, fx, fy)
	if err != nil {
		return nil, err
	}

	site := make([]float64, len(xs))
	for i := range site {
		if i%width == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		site[i] = win.bilinear(fx[i], fy[i])
	}
	return site, nil
}

// cellsAcross returns how many cells of size res cover extent, at least one.
func cellsAcross(extent, res float64) int {
	n := int(math.Ceil(extent/res - 1e-9))
	return max(n, 1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
