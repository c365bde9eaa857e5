// Command genvs30 writes a synthetic VS30 GeoTIFF and a matching set of
// sample earthquake reports, for local runs and the integration suite when
// no real site model is at hand.
//
// Usage:
//
//	go run ./cmd/genvs30 \
//	  -out data/mock/vs30.tif \
//	  -reports-out data/mock/earthquake_reports.json \
//	  -west 100 -north 34 -east 106 -south 28 -step 0.01
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/geotiff"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

const (
	minVS30 = 150.0
	maxVS30 = 1500.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the VS30 GeoTIFF")
	reportsOut := flag.String("reports-out", "", "optional output path for sample report JSON")
	west := flag.Float64("west", 100, "western edge in degrees")
	north := flag.Float64("north", 34, "northern edge in degrees")
	east := flag.Float64("east", 106, "eastern edge in degrees")
	south := flag.Float64("south", 28, "southern edge in degrees")
	step := flag.Float64("step", 0.01, "pixel size in degrees")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *east <= *west || *north <= *south || *step <= 0 {
		return fmt.Errorf("invalid extent: west=%g east=%g south=%g north=%g step=%g", *west, *east, *south, *north, *step)
	}

	r := synthesize(*west, *north, *east, *south, *step)
	if err := geotiff.NewWriter().WriteRaster(*out, r); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %s: %dx%d pixels", *out, r.Width, r.Height)

	if *reportsOut == "" {
		return nil
	}
	reports, err := sampleReports((*west+*east)/2, (*north+*south)/2)
	if err != nil {
		return err
	}
	if err := writeJSON(*reportsOut, reports); err != nil {
		return err
	}
	log.Printf("wrote %s: %d reports", *reportsOut, len(reports))
	return nil
}

// synthesize builds a basin-shaped VS30 field: soft sediments at the centre
// stiffening towards the edges, with a ridge of rock along one diagonal.
func synthesize(west, north, east, south, step float64) *grid.MemoryRaster {
	w := int(math.Ceil((east - west) / step))
	h := int(math.Ceil((north - south) / step))
	cx, cy := (west+east)/2, (north+south)/2
	halfDiag := math.Hypot(east-west, north-south) / 2

	data := make([]float64, w*h)
	for row := range h {
		y := north - (float64(row)+0.5)*step
		for col := range w {
			x := west + (float64(col)+0.5)*step
			d := math.Hypot(x-cx, y-cy) / halfDiag
			v := minVS30 + (maxVS30-minVS30)*d*d
			ridge := math.Abs((x - cx) - (y - cy))
			if ridge < 0.2 {
				v = math.Max(v, 900)
			}
			data[row*w+col] = math.Min(maxVS30, v)
		}
	}
	nodata := -9999.0
	return &grid.MemoryRaster{
		Width:     w,
		Height:    h,
		Transform: grid.FromOrigin(west, north, step, step),
		CRS:       grid.GeographicCRS,
		Data:      data,
		NoData:    &nodata,
	}
}

func sampleReports(lon, lat float64) ([]domain.EarthquakeReport, error) {
	// Fixed clock for reproducible IDs and timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	inputs := []domain.EarthquakeReport{
		{Name: "Sample Shallow", Epicenter: domain.Epicenter{Lon: lon, Lat: lat, DepthKm: 10, RadiusKm: 100}, Ms: 6.8, Mw: 6.6},
		{Name: "Sample Deep", Epicenter: domain.Epicenter{Lon: lon + 1, Lat: lat - 1, DepthKm: 35, RadiusKm: 80}, Ms: 5.9, Date: "12052008"},
		{Epicenter: domain.Epicenter{Lon: lon - 1, Lat: lat + 1, DepthKm: 15, RadiusKm: 60}, Mw: 6.1, Date: "20042013", Models: []string{"GB2015", "Wang_2023"}},
	}
	out := make([]domain.EarthquakeReport, 0, len(inputs))
	for _, in := range inputs {
		in.ReceivedAt = domain.Now()
		r, err := domain.NormalizeReport(in)
		if err != nil {
			return nil, fmt.Errorf("sample report %q: %w", in.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
