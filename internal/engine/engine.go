// Package engine runs one ensemble ground-motion estimate: grid, distances,
// model evaluation, weighting and combination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/ensemble"
	"github.com/EdenYYT/RapidGMPE/internal/geodesy"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

// Stages name where an estimate failed.
const (
	StageInput    = "input validation"
	StageGrid     = "grid construction"
	StageDistance = "distance calculation"
	StageModels   = "model evaluation"
	StageWeights  = "weighting"
	StageCombine  = "combination"
)

// StageError is a fatal estimate failure tagged with its stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of a StageError in err's chain, or "".
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Request is one estimate.
type Request struct {
	// RunID identifies the run in logs and outputs; generated when empty.
	RunID        string
	Epicenter    domain.Epicenter
	Magnitudes   domain.Magnitudes
	SitePath     string
	ResolutionKm float64
	// Models selects catalog entries by name; empty selects all.
	Models []string
}

// Result is a completed estimate. Slices are row-major over the grid.
type Result struct {
	RunID   string
	Grid    *grid.Grid
	Field   geodesy.Field
	PGA     []float64
	Models  []gmpe.Prediction // masked per-model PGA
	Weights ensemble.Vector
	// Unknown lists requested model names missing from the catalog.
	Unknown  []string
	Duration time.Duration
}

// WeightList returns the weights with excluded models as -1.
func (r *Result) WeightList() []domain.ModelWeight {
	out := make([]domain.ModelWeight, len(r.Weights.Weights))
	for i, w := range r.Weights.Weights {
		out[i] = domain.ModelWeight{Model: w.Model, Weight: w.Sentinel()}
	}
	return out
}

// Engine is safe for concurrent use; it holds no per-run state.
type Engine struct {
	grids   grid.Constructor
	catalog *gmpe.Catalog
	logger  *slog.Logger
}

// New creates an Engine over a grid constructor and a model catalog.
func New(grids grid.Constructor, catalog *gmpe.Catalog, logger *slog.Logger) *Engine {
	return &Engine{grids: grids, catalog: catalog, logger: logger}
}

// Catalog returns the engine's model catalog.
func (e *Engine) Catalog() *gmpe.Catalog {
	return e.catalog
}

// Estimate runs the full estimate for req.
func (e *Engine) Estimate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := e.logger.With("run_id", runID)

	if err := validateRequest(req); err != nil {
		return nil, &StageError{Stage: StageInput, Err: err}
	}

	active, unknown := e.catalog.Select(req.Models)
	if len(unknown) > 0 {
		log.Warn("ignoring unknown models", "models", unknown)
	}
	if len(active) == 0 {
		return nil, &StageError{Stage: StageModels, Err: fmt.Errorf("%w: requested %s", gmpe.ErrNoActiveModels, strings.Join(req.Models, ","))}
	}

	g, err := e.grids.Build(ctx, grid.Spec{
		Lon:          req.Epicenter.Lon,
		Lat:          req.Epicenter.Lat,
		RadiusKm:     req.Epicenter.RadiusKm,
		ResolutionKm: req.ResolutionKm,
		SitePath:     req.SitePath,
	})
	if err != nil {
		return nil, &StageError{Stage: StageGrid, Err: err}
	}
	log.Debug("grid ready", "width", g.Width, "height", g.Height)

	field, err := geodesy.Compute(req.Epicenter.Lon, req.Epicenter.Lat, req.Epicenter.DepthKm, req.Epicenter.RadiusKm, g.Lon, g.Lat)
	if err != nil {
		return nil, &StageError{Stage: StageDistance, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageDistance, Err: err}
	}

	sites := make([]gmpe.Site, g.Len())
	for i := range sites {
		sites[i] = gmpe.Site{Re: field.Epicentral[i], Rh: field.Hypocentral[i], Vs30: g.Site[i]}
	}
	event := gmpe.Event{Ms: req.Magnitudes.Ms, Mw: req.Magnitudes.Mw, DepthKm: req.Epicenter.DepthKm}

	preds, err := gmpe.Evaluate(ctx, active, event, sites)
	if err != nil {
		return nil, &StageError{Stage: StageModels, Err: err}
	}
	log.Debug("models evaluated", "models", gmpe.Names(preds), "cells_in_radius", field.Inside())

	samples := make([][]float64, len(preds))
	for i, p := range preds {
		samples[i] = ensemble.InRadius(p.PGA, field.Mask)
	}
	weights, err := ensemble.Estimate(gmpe.Names(preds), samples)
	if err != nil {
		return nil, &StageError{Stage: StageWeights, Err: err}
	}
	if len(weights.Active()) == 0 {
		return nil, &StageError{Stage: StageWeights, Err: fmt.Errorf("%w (status %s)", ensemble.ErrNoEnsemble, weights.Status)}
	}

	combo, err := ensemble.Combine(weights, preds, field.Mask)
	if err != nil {
		return nil, &StageError{Stage: StageCombine, Err: err}
	}

	res := &Result{
		RunID:    runID,
		Grid:     g,
		Field:    field,
		PGA:      combo.PGA,
		Models:   combo.Masked,
		Weights:  weights,
		Unknown:  unknown,
		Duration: time.Since(start),
	}
	log.Info("estimate complete",
		"models", len(active),
		"active_weights", len(weights.Active()),
		"weight_status", weights.Status.String(),
		"grid", fmt.Sprintf("%dx%d", g.Width, g.Height),
		"duration", res.Duration,
	)
	return res, nil
}

func validateRequest(req Request) error {
	ep := req.Epicenter
	switch {
	case !finite(ep.DepthKm) || ep.DepthKm < 0:
		return fmt.Errorf("depth must be a non-negative number, got %v", ep.DepthKm)
	case !finite(ep.RadiusKm) || ep.RadiusKm <= 0:
		return fmt.Errorf("radius must be positive, got %v", ep.RadiusKm)
	case !finite(req.Magnitudes.Ms) || !finite(req.Magnitudes.Mw):
		return fmt.Errorf("magnitudes must be finite, got ms=%v mw=%v", req.Magnitudes.Ms, req.Magnitudes.Mw)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
