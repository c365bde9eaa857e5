package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/artifacts"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
)

// Estimator runs one ensemble estimate.
type Estimator interface {
	Estimate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// ArtifactWriter persists the files of a completed estimate.
type ArtifactWriter interface {
	Write(name string, res *engine.Result) (artifacts.Paths, error)
}

// Defaults fill request fields a report leaves empty.
type Defaults struct {
	SitePath     string
	ResolutionKm float64
	Models       []string
}

// EstimateTransformer implements Transformer: it validates a report, names
// it, completes its magnitudes, runs the estimate and writes its artifacts.
type EstimateTransformer struct {
	estimator Estimator
	store     ArtifactWriter
	geocoder  domain.Geocoder
	defaults  Defaults
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewEstimateTransformer creates an EstimateTransformer. A nil geocoder
// disables reverse geocoding; a nil store skips artifact output.
func NewEstimateTransformer(estimator Estimator, store ArtifactWriter, geocoder domain.Geocoder, defaults Defaults, metrics *observability.Metrics, logger *slog.Logger) *EstimateTransformer {
	return &EstimateTransformer{
		estimator: estimator,
		store:     store,
		geocoder:  geocoder,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
	}
}

func (t *EstimateTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.EstimateSummary, error) {
	report, err := domain.ParseReport(raw)
	if err != nil {
		return domain.EstimateSummary{}, err
	}
	return t.EstimateReport(ctx, report)
}

// EstimateReport runs a validated report through the engine.
func (t *EstimateTransformer) EstimateReport(ctx context.Context, report domain.EarthquakeReport) (domain.EstimateSummary, error) {
	mags, err := domain.ConvertMagnitude(report.Ms, report.Mw, report.Date)
	if err != nil {
		return domain.EstimateSummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidReport, err)
	}
	report = domain.NameReport(ctx, report, t.geocoder, t.logger)

	req := engine.Request{
		RunID:        report.ID,
		Epicenter:    report.Epicenter,
		Magnitudes:   mags,
		SitePath:     t.defaults.SitePath,
		ResolutionKm: report.ResolutionKm,
		Models:       report.Models,
	}
	if req.ResolutionKm <= 0 {
		req.ResolutionKm = t.defaults.ResolutionKm
	}
	if len(req.Models) == 0 {
		req.Models = t.defaults.Models
	}

	res, err := t.estimator.Estimate(ctx, req)
	if err != nil {
		t.metrics.EstimatesTotal.WithLabelValues("failed").Inc()
		if stage := engine.FailedStage(err); stage != "" {
			t.metrics.StageFailures.WithLabelValues(stage).Inc()
		}
		return domain.EstimateSummary{}, fmt.Errorf("estimate %s: %w", report.ID, err)
	}
	t.metrics.EstimatesTotal.WithLabelValues(res.Weights.Status.String()).Inc()
	t.metrics.EstimateDuration.Observe(res.Duration.Seconds())
	for _, w := range res.Weights.Weights {
		if w.Excluded {
			t.metrics.ModelExcluded.WithLabelValues(w.Model).Inc()
		}
	}

	var files []string
	if t.store != nil {
		paths, err := t.store.Write(report.Name, res)
		if err != nil {
			return domain.EstimateSummary{}, fmt.Errorf("%w for %s: %w", ErrArtifacts, report.ID, err)
		}
		files = paths.All()
		t.metrics.ArtifactsWritten.Add(float64(len(files)))
	}

	t.logger.Info("report estimated",
		"report_id", report.ID,
		"name", report.Name,
		"place_source", report.PlaceSource,
		"ms", mags.Ms,
		"mw", mags.Mw,
		"weight_status", res.Weights.Status.String(),
	)
	return res.Summary(report, mags, files), nil
}
