package grid

import (
	"fmt"
	"math"
)

// window is the block of source pixels read for one grid build.
type window struct {
	x0, y0, w, h     int
	rasterW, rasterH int
	data             []float64
	nodata           float64
	hasNoData        bool
}

// planWindow returns the source pixel window needed to bilinearly sample at
// the fractional pixel positions (fx, fy). ok is false when no position
// falls inside the raster.
func planWindow(fx, fy []float64, rasterW, rasterH int) (x0, y0, w, h int, ok bool) {
	minC, minR := math.MaxInt, math.MaxInt
	maxC, maxR := math.MinInt, math.MinInt
	for i := range fx {
		if !insideExtent(fx[i], fy[i], rasterW, rasterH) {
			continue
		}
		c := int(math.Floor(fx[i] - 0.5))
		r := int(math.Floor(fy[i] - 0.5))
		minC, maxC = min(minC, c), max(maxC, c+1)
		minR, maxR = min(minR, r), max(maxR, r+1)
	}
	if minC == math.MaxInt {
		return 0, 0, 0, 0, false
	}
	minC, minR = max(minC, 0), max(minR, 0)
	maxC, maxR = min(maxC, rasterW-1), min(maxR, rasterH-1)
	return minC, minR, maxC - minC + 1, maxR - minR + 1, true
}

func readWindow(src SiteSource, fx, fy []float64) (*window, error) {
	rasterW, rasterH := src.Size()
	if rasterW <= 0 || rasterH <= 0 {
		return nil, fmt.Errorf("%w: empty raster %dx%d", ErrSiteRaster, rasterW, rasterH)
	}
	nodata, hasNoData := src.NoData()
	win := &window{rasterW: rasterW, rasterH: rasterH, nodata: nodata, hasNoData: hasNoData}

	x0, y0, w, h, ok := planWindow(fx, fy, rasterW, rasterH)
	if !ok {
		return win, nil
	}
	data, err := src.ReadWindow(x0, y0, w, h)
	if err != nil {
		return nil, fmt.Errorf("%w: read window %d,%d %dx%d: %v", ErrSiteRaster, x0, y0, w, h, err)
	}
	if len(data) != w*h {
		return nil, fmt.Errorf("%w: read %d values, want %d", ErrSiteRaster, len(data), w*h)
	}
	win.x0, win.y0, win.w, win.h, win.data = x0, y0, w, h, data
	return win, nil
}

func (w *window) value(col, row int) (float64, bool) {
	lc, lr := col-w.x0, row-w.y0
	if lc < 0 || lr < 0 || lc >= w.w || lr >= w.h {
		return 0, false
	}
	v := w.data[lr*w.w+lc]
	if math.IsNaN(v) || math.IsInf(v, 0) || (w.hasNoData && v == w.nodata) {
		return 0, false
	}
	return v, true
}

// bilinear samples the window at fractional pixel coordinates measured from
// the raster's upper-left corner. Neighbours that are no-data or off the
// raster are dropped and the remaining weights renormalised.
func (w *window) bilinear(fx, fy float64) float64 {
	if !insideExtent(fx, fy, w.rasterW, w.rasterH) {
		return math.NaN()
	}
	u, v := fx-0.5, fy-0.5
	c0, r0 := int(math.Floor(u)), int(math.Floor(v))
	du, dv := u-float64(c0), v-float64(r0)

	taps := [4]struct {
		dc, dr int
		wt     float64
	}{
		{0, 0, (1 - du) * (1 - dv)},
		{1, 0, du * (1 - dv)},
		{0, 1, (1 - du) * dv},
		{1, 1, du * dv},
	}

	var sum, wsum float64
	for _, t := range taps {
		if t.wt == 0 {
			continue
		}
		val, ok := w.value(c0+t.dc, r0+t.dr)
		if !ok {
			continue
		}
		sum += t.wt * val
		wsum += t.wt
	}
	if wsum <= 0 {
		return math.NaN()
	}
	return sum / wsum
}

func insideExtent(fx, fy float64, rasterW, rasterH int) bool {
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return false
	}
	return fx >= 0 && fy >= 0 && fx <= float64(rasterW) && fy <= float64(rasterH)
}
