package ensemble

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"gonum.org/v1/gonum/floats"
)

var ErrNoEnsemble = errors.New("no model carries a positive weight")

// Combination is the weighted ensemble and the masked per-model fields.
type Combination struct {
	PGA    []float64
	Masked []gmpe.Prediction
}

// Combine masks every prediction to the analysis radius and sums the
// positively weighted ones. Cells outside the mask are NaN, and a NaN
// prediction from a contributing model propagates into the ensemble.
func Combine(v Vector, preds []gmpe.Prediction, mask []bool) (Combination, error) {
	if len(preds) != len(v.Weights) {
		return Combination{}, fmt.Errorf("%d predictions for %d weights", len(preds), len(v.Weights))
	}

	masked := make([]gmpe.Prediction, len(preds))
	for i, p := range preds {
		if p.Model != v.Weights[i].Model {
			return Combination{}, fmt.Errorf("prediction %d is %s, weight is %s", i, p.Model, v.Weights[i].Model)
		}
		if len(p.PGA) != len(mask) {
			return Combination{}, fmt.Errorf("model %s: %d cells, mask has %d", p.Model, len(p.PGA), len(mask))
		}
		out := slices.Clone(p.PGA)
		for j, in := range mask {
			if !in {
				out[j] = math.NaN()
			}
		}
		masked[i] = gmpe.Prediction{Model: p.Model, PGA: out}
	}

	pga := make([]float64, len(mask))
	contributed := false
	for i, w := range v.Weights {
		if w.Excluded || w.Value <= 0 || math.IsInf(w.Value, 0) || math.IsNaN(w.Value) {
			continue
		}
		floats.AddScaled(pga, w.Value, masked[i].PGA)
		contributed = true
	}
	if !contributed {
		return Combination{}, ErrNoEnsemble
	}
	return Combination{PGA: pga, Masked: masked}, nil
}

// InRadius returns the values of field where mask is true.
func InRadius(field []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(field))
	for i, in := range mask {
		if in {
			out = append(out, field[i])
		}
	}
	return out
}
