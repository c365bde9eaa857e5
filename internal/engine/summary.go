package engine

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
)

// PGAStats summarizes the finite ensemble PGA values inside the radius.
func (r *Result) PGAStats() domain.PGAStats {
	data := make(stats.Float64Data, 0, len(r.PGA))
	for i, v := range r.PGA {
		if r.Field.Mask[i] && !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return domain.PGAStats{}
	}

	out := domain.PGAStats{Cells: len(data)}
	out.Max, _ = stats.Max(data)
	out.Mean, _ = stats.Mean(data)
	out.Median, _ = stats.Median(data)
	out.P95, _ = stats.Percentile(data, 95)
	return out
}

// Summary builds the published record for a report.
func (r *Result) Summary(report domain.EarthquakeReport, mags domain.Magnitudes, artifacts []string) domain.EstimateSummary {
	pga := r.PGAStats()
	maxLevel := 0.0
	if pga.Cells > 0 {
		maxLevel = domain.IntensityLevel(pga.Max)
	}
	return domain.EstimateSummary{
		ID:            report.ID,
		RunID:         r.RunID,
		Name:          report.Name,
		Epicenter:     report.Epicenter,
		Magnitudes:    mags,
		Status:        r.Weights.Status.String(),
		Weights:       r.WeightList(),
		UnknownModels: r.Unknown,
		PGA:           pga,
		MaxIntensity:  maxLevel,
		GridWidth:     r.Grid.Width,
		GridHeight:    r.Grid.Height,
		Artifacts:     artifacts,
		ProcessedAt:   domain.Now(),
	}
}
