package ensemble

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Status records which branch of the weighting scheme produced a Vector.
type Status int

const (
	// StatusSelected means weights were renormalised over models with a
	// positive deviation-from-uniform index.
	StatusSelected Status = iota
	// StatusUniformFallback means every finite-score model got 1/M.
	StatusUniformFallback
	// StatusAllExcluded means no model could be scored.
	StatusAllExcluded
)

func (s Status) String() string {
	switch s {
	case StatusSelected:
		return "selected"
	case StatusUniformFallback:
		return "uniform_fallback"
	case StatusAllExcluded:
		return "all_excluded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Weight is one model's outcome.
type Weight struct {
	Model    string
	Value    float64
	Excluded bool
	// Score is the model's base-2 log-likelihood score, +Inf when unscored.
	Score float64
	// DSI is the deviation-from-uniform index in percent, NaN when the
	// weighting never reached that step.
	DSI float64
}

// Sentinel returns the weight with exclusion encoded as -1.
func (w Weight) Sentinel() float64 {
	if w.Excluded {
		return -1
	}
	return w.Value
}

// Vector is the full weighting result, one entry per model in input order.
type Vector struct {
	Weights []Weight
	Status  Status
}

// Values returns the weights with excluded models as -1.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.Weights))
	for i, w := range v.Weights {
		out[i] = w.Sentinel()
	}
	return out
}

// Active returns the weights that contribute to the ensemble.
func (v Vector) Active() []Weight {
	var out []Weight
	for _, w := range v.Weights {
		if !w.Excluded && w.Value > 0 && !math.IsInf(w.Value, 0) && !math.IsNaN(w.Value) {
			out = append(out, w)
		}
	}
	return out
}

// Estimate scores each model's samples and derives the weight vector.
// names and samples must align.
func Estimate(names []string, samples [][]float64) (Vector, error) {
	if len(names) != len(samples) {
		return Vector{}, fmt.Errorf("%d model names for %d sample sets", len(names), len(samples))
	}
	scores := make([]float64, len(samples))
	for i, s := range samples {
		scores[i] = Score(s)
	}
	return Weights(names, scores)
}

// Weights turns per-model scores into weights. Raw weights are 2^-score;
// models whose share beats the uniform share 1/M are kept and renormalised,
// the rest are excluded. M counts finite scores.
func Weights(names []string, scores []float64) (Vector, error) {
	if len(names) != len(scores) {
		return Vector{}, fmt.Errorf("%d model names for %d scores", len(names), len(scores))
	}

	n := len(scores)
	v := Vector{Weights: make([]Weight, n)}
	finite := make([]bool, n)
	raw := make([]float64, n)
	m := 0
	for i, s := range scores {
		v.Weights[i] = Weight{Model: names[i], Score: s, DSI: math.NaN(), Excluded: true}
		if !math.IsInf(s, 0) && !math.IsNaN(s) {
			finite[i] = true
			raw[i] = math.Exp2(-s)
			m++
		}
	}

	if m == 0 {
		v.Status = StatusAllExcluded
		return v, nil
	}

	uniform := 1 / float64(m)
	total := floats.Sum(raw)
	if math.IsInf(total, 0) || math.IsNaN(total) || total <= 0 {
		v.uniform(finite, uniform)
		return v, nil
	}

	kept := make([]bool, n)
	anyKept := false
	for i := range raw {
		if !finite[i] {
			continue
		}
		dsi := 100 * (raw[i]/total - uniform) / uniform
		v.Weights[i].DSI = dsi
		if dsi > 0 {
			kept[i] = true
			anyKept = true
		}
	}
	if !anyKept {
		v.uniform(finite, uniform)
		return v, nil
	}

	var keptSum float64
	keptCount := 0
	for i := range raw {
		if kept[i] {
			keptSum += raw[i]
			keptCount++
		}
	}
	badSum := math.IsInf(keptSum, 0) || math.IsNaN(keptSum) || keptSum <= 0
	for i := range raw {
		if !kept[i] {
			continue
		}
		w := &v.Weights[i]
		w.Excluded = false
		if badSum {
			w.Value = 1 / float64(keptCount)
		} else {
			w.Value = raw[i] / keptSum
		}
	}
	v.Status = StatusSelected
	return v, nil
}

func (v *Vector) uniform(finite []bool, share float64) {
	for i := range v.Weights {
		if finite[i] {
			v.Weights[i].Excluded = false
			v.Weights[i].Value = share
		}
	}
	v.Status = StatusUniformFallback
}
