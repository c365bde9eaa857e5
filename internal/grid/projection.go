package grid

import (
	"fmt"

	"github.com/ctessum/geom/proj"
)

const (
	// GeographicCRS is WGS84 longitude/latitude in degrees.
	GeographicCRS = "+proj=longlat +datum=WGS84 +no_defs"
	// MercatorCRS is World Mercator (EPSG:3395) on the WGS84 ellipsoid.
	MercatorCRS = "+proj=merc +lon_0=0 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"
)

// projector converts between geographic and metric grid coordinates.
type projector struct {
	metric       *proj.SR
	toMetric     proj.Transformer
	toGeographic proj.Transformer
}

func newProjector(metricDef string) (*projector, error) {
	geoSR, err := proj.Parse(GeographicCRS)
	if err != nil {
		return nil, fmt.Errorf("parse geographic projection: %w", err)
	}
	metricSR, err := proj.Parse(metricDef)
	if err != nil {
		return nil, fmt.Errorf("parse metric projection: %w", err)
	}
	fwd, err := transform(geoSR, metricSR)
	if err != nil {
		return nil, fmt.Errorf("geographic to metric transform: %w", err)
	}
	inv, err := transform(metricSR, geoSR)
	if err != nil {
		return nil, fmt.Errorf("metric to geographic transform: %w", err)
	}
	return &projector{metric: metricSR, toMetric: fwd, toGeographic: inv}, nil
}

// transform wraps (*proj.SR).NewTransform, which returns a nil Transformer
// when both systems are equal.
func transform(from, to *proj.SR) (proj.Transformer, error) {
	t, err := from.NewTransform(to)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return identity, nil
	}
	return t, nil
}

func identity(x, y float64) (float64, float64, error) {
	return x, y, nil
}

// toSource returns a transform from the metric grid CRS into the CRS of a
// site raster.
func (p *projector) toSource(def string) (proj.Transformer, error) {
	srcSR, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndefinedCRS, err)
	}
	t, err := transform(p.metric, srcSR)
	if err != nil {
		return nil, fmt.Errorf("metric to site raster transform: %w", err)
	}
	return t, nil
}
