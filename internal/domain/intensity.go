package domain

import "math"

// levelEdges are the upper PGA bounds (m/s²) of intensity levels 0–6.
var levelEdges = [...]float64{0.457, 0.936, 1.94, 4.01, 8.30, 17.2, 35.5}

// PGAToIntensity converts PGA (m/s²) to continuous intensity. NaN stays NaN.
func PGAToIntensity(pga []float64) []float64 {
	out := make([]float64, len(pga))
	for i, p := range pga {
		if math.IsNaN(p) {
			out[i] = math.NaN()
			continue
		}
		out[i] = 1.5*math.Log(math.Max(p, 1e-6)) + 8
	}
	return out
}

// IntensityLevel returns the discrete level 0–7 for one PGA value, or NaN
// when p is not finite.
func IntensityLevel(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return math.NaN()
	}
	if p < levelEdges[0] {
		return 0
	}
	for i := 1; i < len(levelEdges); i++ {
		if p <= levelEdges[i] {
			return float64(i)
		}
	}
	return float64(len(levelEdges))
}

// ClassifyIntensity maps a PGA field to discrete intensity levels.
func ClassifyIntensity(pga []float64) []float64 {
	out := make([]float64, len(pga))
	for i, p := range pga {
		out[i] = IntensityLevel(p)
	}
	return out
}
