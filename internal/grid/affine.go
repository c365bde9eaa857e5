package grid

import (
	"errors"
	"math"
)

// ErrSingularTransform is returned when an affine transform cannot be inverted.
var ErrSingularTransform = errors.New("singular geotransform")

// Affine maps pixel coordinates to map coordinates. Coefficients are held in
// GDAL geotransform order.
type Affine struct {
	OriginX     float64 `json:"origin_x"`
	PixelWidth  float64 `json:"pixel_width"`
	RowRotation float64 `json:"row_rotation"`
	OriginY     float64 `json:"origin_y"`
	ColRotation float64 `json:"col_rotation"`
	PixelHeight float64 `json:"pixel_height"` // negative for north-up rasters
}

// FromOrigin returns a north-up transform whose upper-left corner is at
// (west, north) with square or rectangular pixels of the given size.
func FromOrigin(west, north, xsize, ysize float64) Affine {
	return Affine{
		OriginX:     west,
		PixelWidth:  xsize,
		OriginY:     north,
		PixelHeight: -ysize,
	}
}

// FromGeoTransform converts a GDAL-ordered coefficient array.
func FromGeoTransform(gt [6]float64) Affine {
	return Affine{
		OriginX:     gt[0],
		PixelWidth:  gt[1],
		RowRotation: gt[2],
		OriginY:     gt[3],
		ColRotation: gt[4],
		PixelHeight: gt[5],
	}
}

// GeoTransform returns the coefficients in GDAL order.
func (a Affine) GeoTransform() [6]float64 {
	return [6]float64{a.OriginX, a.PixelWidth, a.RowRotation, a.OriginY, a.ColRotation, a.PixelHeight}
}

// Apply maps fractional pixel coordinates (col, row), measured from the
// upper-left corner of the raster, to map coordinates.
func (a Affine) Apply(col, row float64) (x, y float64) {
	x = a.OriginX + col*a.PixelWidth + row*a.RowRotation
	y = a.OriginY + col*a.ColRotation + row*a.PixelHeight
	return x, y
}

// Invert maps map coordinates back to fractional pixel coordinates.
func (a Affine) Invert(x, y float64) (col, row float64, err error) {
	det := a.PixelWidth*a.PixelHeight - a.RowRotation*a.ColRotation
	if det == 0 || math.IsNaN(det) {
		return 0, 0, ErrSingularTransform
	}
	dx := x - a.OriginX
	dy := y - a.OriginY
	col = (a.PixelHeight*dx - a.RowRotation*dy) / det
	row = (-a.ColRotation*dx + a.PixelWidth*dy) / det
	return col, row, nil
}
