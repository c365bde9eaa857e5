// Package geodesy computes epicentral and hypocentral distances from an
// epicentre to grid cells and the circular analysis mask.
package geodesy

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Haversine.
	EarthRadiusKm = 6371.0
	// MinDistanceKm floors distances handed to ground-motion models.
	MinDistanceKm = 1.0
)

var ErrLengthMismatch = errors.New("longitude and latitude slices differ in length")

// Haversine returns the great-circle distance in km between two points given
// in degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Hypocentral combines an epicentral distance with a focal depth, both in km.
func Hypocentral(epicentral, depthKm float64) float64 {
	return math.Hypot(epicentral, depthKm)
}

// Field holds per-cell distances and the radius mask.
type Field struct {
	// Epicentral and Hypocentral are in km and never below MinDistanceKm.
	Epicentral  []float64
	Hypocentral []float64
	// Mask is true where the unclamped epicentral distance is within the
	// analysis radius.
	Mask []bool
}

// Len returns the number of cells.
func (f Field) Len() int {
	return len(f.Epicentral)
}

// Inside returns the number of cells within the radius.
func (f Field) Inside() int {
	n := 0
	for _, in := range f.Mask {
		if in {
			n++
		}
	}
	return n
}

// Compute evaluates distances from the epicentre (lon, lat) at depthKm to every
// cell centre in (lons, lats) and masks cells farther than radiusKm.
func Compute(lon, lat, depthKm, radiusKm float64, lons, lats []float64) (Field, error) {
	if len(lons) != len(lats) {
		return Field{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(lons), len(lats))
	}
	if math.IsNaN(depthKm) || depthKm < 0 {
		return Field{}, fmt.Errorf("invalid depth %v km", depthKm)
	}

	f := Field{
		Epicentral:  make([]float64, len(lons)),
		Hypocentral: make([]float64, len(lons)),
		Mask:        make([]bool, len(lons)),
	}
	for i := range lons {
		re := Haversine(lon, lat, lons[i], lats[i])
		f.Mask[i] = re <= radiusKm
		f.Epicentral[i] = math.Max(re, MinDistanceKm)
		f.Hypocentral[i] = math.Max(Hypocentral(re, depthKm), MinDistanceKm)
	}
	return f, nil
}
