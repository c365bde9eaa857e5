package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidReport = errors.New("invalid earthquake report")

	validate = validator.New()

	// unsafeNameRe matches characters that cannot appear in an output file
	// prefix.
	unsafeNameRe = regexp.MustCompile(`[^\p{L}\p{N}_.-]+`)
)

// ParseReport decodes and validates a report from the source topic.
func ParseReport(raw RawEvent) (EarthquakeReport, error) {
	var r EarthquakeReport
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return EarthquakeReport{}, fmt.Errorf("%w: decode: %v", ErrInvalidReport, err)
	}
	r.RawPayload = raw.Value
	r.ReceivedAt = raw.Timestamp
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = Now()
	}
	return NormalizeReport(r)
}

// NormalizeReport trims and validates a report and fills its ID.
func NormalizeReport(r EarthquakeReport) (EarthquakeReport, error) {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = SanitizeName(r.Name)
	r.Date = strings.TrimSpace(r.Date)
	for i, m := range r.Models {
		r.Models[i] = strings.TrimSpace(m)
	}

	if err := ValidateReport(r); err != nil {
		return EarthquakeReport{}, err
	}
	if r.ID == "" {
		r.ID = generateID(r)
	}
	return r, nil
}

// ValidateReport checks field ranges and that the magnitude pair can be
// completed.
func ValidateReport(r EarthquakeReport) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if r.Ms <= 0 && r.Mw <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidReport, ErrMissingMagnitude)
	}
	if (r.Ms <= 0 || r.Mw <= 0) && r.Date == "" {
		return fmt.Errorf("%w: date is required to convert between ms and mw", ErrInvalidReport)
	}
	if r.Date != "" {
		if _, err := ParseEventDate(r.Date); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
	}
	return nil
}

// SanitizeName makes a name safe to use as an output file prefix.
func SanitizeName(name string) string {
	name = unsafeNameRe.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(name, "_.")
}

// generateID derives a deterministic ID from the event's defining fields so
// replays of the same report map to the same artifacts.
func generateID(r EarthquakeReport) string {
	input := fmt.Sprintf("%.4f|%.4f|%.1f|%s|%g|%g", r.Lon, r.Lat, r.DepthKm, r.Date, r.Ms, r.Mw)
	hash := sha256.Sum256([]byte(input))
	return "eq-" + hex.EncodeToString(hash[:8])
}
