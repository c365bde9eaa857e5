package domain

import (
	"context"
	"log/slog"
)

// NameReport fills an empty report name from the place nearest the
// epicentre. If geocoder is nil or the lookup fails the report keeps a
// generated name and PlaceSource says why (graceful degradation).
func NameReport(ctx context.Context, report EarthquakeReport, geocoder Geocoder, logger *slog.Logger) EarthquakeReport {
	if report.Name != "" {
		report.PlaceSource = "original"
		return report
	}

	report.Name = generatedName(report.ID)
	report.PlaceSource = "generated"
	if geocoder == nil {
		return report
	}

	result, err := geocoder.ReverseGeocode(ctx, report.Lat, report.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", report.ID,
			"lat", report.Lat,
			"lon", report.Lon,
			"error", err,
		)
		report.PlaceSource = "failed"
		return report
	}
	if name := SanitizeName(result.PlaceName); name != "" {
		report.Name = name
		report.PlaceSource = "reverse"
	}
	return report
}

func generatedName(id string) string {
	if len(id) > 12 {
		id = id[:12]
	}
	return "event_" + SanitizeName(id)
}
