package grid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/geom"
)

// SiteSource is an open single-band site raster.
type SiteSource interface {
	// Size returns the raster dimensions in pixels.
	Size() (width, height int)
	GeoTransform() Affine
	// Projection returns the raster CRS as a WKT or PROJ.4 definition. An
	// empty string means the CRS is undefined.
	Projection() string
	NoData() (value float64, ok bool)
	// ReadWindow returns w*h values starting at pixel (x, y), row-major.
	ReadWindow(x, y, w, h int) ([]float64, error)
	Close() error
}

// SiteOpener opens site rasters by path.
type SiteOpener interface {
	Open(ctx context.Context, path string) (SiteSource, error)
}

// WarpTarget is the grid a Warper resamples onto.
type WarpTarget struct {
	CRS    string
	Bounds geom.Bounds
	Width  int
	Height int
}

// Warper is implemented by openers that reproject and bilinearly resample a
// site raster onto a target grid themselves. Cells without data are NaN.
// The Builder prefers it over windowed reads.
type Warper interface {
	Warp(ctx context.Context, path string, target WarpTarget) ([]float64, error)
}

// MemoryRaster is an in-memory site raster.
type MemoryRaster struct {
	Width     int
	Height    int
	Transform Affine
	CRS       string
	Data      []float64
	NoData    *float64
}

// MemoryOpener serves MemoryRasters by path. It is safe for concurrent use.
type MemoryOpener struct {
	mu      sync.RWMutex
	rasters map[string]*MemoryRaster
	opened  int
	closed  int
}

// NewMemoryOpener creates an empty in-memory raster store.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{rasters: make(map[string]*MemoryRaster)}
}

// Add registers a raster under path.
func (m *MemoryOpener) Add(path string, r *MemoryRaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rasters[path] = r
}

// Open implements SiteOpener.
func (m *MemoryOpener) Open(_ context.Context, path string) (SiteSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rasters[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such raster", path)
	}
	if len(r.Data) != r.Width*r.Height {
		return nil, fmt.Errorf("open %s: %d values for %dx%d raster", path, len(r.Data), r.Width, r.Height)
	}
	m.opened++
	return &memorySource{raster: r, onClose: m.markClosed}, nil
}

// Stats reports how many sources were opened and closed.
func (m *MemoryOpener) Stats() (opened, closed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opened, m.closed
}

func (m *MemoryOpener) markClosed() {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
}

type memorySource struct {
	raster  *MemoryRaster
	onClose func()
	closed  bool
}

func (s *memorySource) Size() (int, int)     { return s.raster.Width, s.raster.Height }
func (s *memorySource) GeoTransform() Affine { return s.raster.Transform }
func (s *memorySource) Projection() string   { return s.raster.CRS }

func (s *memorySource) NoData() (float64, bool) {
	if s.raster.NoData == nil {
		return math.NaN(), false
	}
	return *s.raster.NoData, true
}

func (s *memorySource) ReadWindow(x, y, w, h int) ([]float64, error) {
	if s.closed {
		return nil, errors.New("read from closed raster")
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > s.raster.Width || y+h > s.raster.Height {
		return nil, fmt.Errorf("window %d,%d %dx%d outside %dx%d raster", x, y, w, h, s.raster.Width, s.raster.Height)
	}
	out := make([]float64, 0, w*h)
	for row := y; row < y+h; row++ {
		start := row*s.raster.Width + x
		out = append(out, s.raster.Data[start:start+w]...)
	}
	return out, nil
}

func (s *memorySource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
