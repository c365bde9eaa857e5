// Package ensemble weights ground-motion models by how well a log-normal
// distribution describes each model's in-radius predictions, and combines
// the weighted predictions into one PGA field.
package ensemble

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinSamples is the fewest usable predictions a model needs to be scored.
const MinSamples = 3

// minRelSigma is the σ, relative to |μ|, below which a fit is degenerate.
const minRelSigma = 1e-12

// FitResult is a maximum-likelihood normal fit to log-transformed samples.
type FitResult struct {
	Mu    float64
	Sigma float64
	N     int
	logs  []float64
}

// Fit keeps finite, strictly positive samples, takes their natural log and
// fits a normal distribution by maximum likelihood (population σ). ok is
// false when fewer than MinSamples remain or σ is degenerate.
func Fit(samples []float64) (FitResult, bool) {
	logs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s) {
			logs = append(logs, math.Log(s))
		}
	}
	if len(logs) < MinSamples {
		return FitResult{N: len(logs)}, false
	}
	// Summation error leaves a σ of order 1e-15 on constant data.
	if floats.Max(logs) == floats.Min(logs) {
		return FitResult{N: len(logs)}, false
	}

	mu, err := stats.Mean(logs)
	if err != nil {
		return FitResult{N: len(logs)}, false
	}
	sigma, err := stats.StandardDeviationPopulation(logs)
	if err != nil || math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= minRelSigma*math.Max(1, math.Abs(mu)) {
		return FitResult{N: len(logs)}, false
	}
	return FitResult{Mu: mu, Sigma: sigma, N: len(logs), logs: logs}, true
}

// Score is the base-2 average negative log-likelihood of the fitted
// distribution over its own samples. Lower is better.
func (f FitResult) Score() float64 {
	if f.N == 0 || f.Sigma <= 0 || len(f.logs) == 0 {
		return math.Inf(1)
	}
	dist := distuv.Normal{Mu: f.Mu, Sigma: f.Sigma}
	var sum float64
	for _, x := range f.logs {
		sum += dist.LogProb(x)
	}
	return -sum / float64(len(f.logs)) / math.Ln2
}

// Score fits samples and returns their score, or +Inf when no fit exists.
func Score(samples []float64) float64 {
	fit, ok := Fit(samples)
	if !ok {
		return math.Inf(1)
	}
	return fit.Score()
}
