package ensemble

import (
	"math"
	"testing"

	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine_WeightedSumInsideRadius(t *testing.T) {
	v := Vector{Weights: []Weight{
		{Model: "A", Value: 0.25},
		{Model: "B", Value: 0.75},
		{Model: "C", Excluded: true},
	}}
	preds := []gmpe.Prediction{
		{Model: "A", PGA: []float64{4, 4, 4}},
		{Model: "B", PGA: []float64{8, 8, 8}},
		{Model: "C", PGA: []float64{100, 100, 100}},
	}
	mask := []bool{true, false, true}

	c, err := Combine(v, preds, mask)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, c.PGA[0], 1e-12)
	assert.True(t, math.IsNaN(c.PGA[1]))
	assert.InDelta(t, 7.0, c.PGA[2], 1e-12)

	require.Len(t, c.Masked, 3)
	for _, m := range c.Masked {
		assert.True(t, math.IsNaN(m.PGA[1]), m.Model)
	}
	assert.Equal(t, 100.0, c.Masked[2].PGA[0])
	assert.Equal(t, 4.0, preds[0].PGA[1], "inputs are not modified")
}

func TestCombine_SingleModelEqualsPrediction(t *testing.T) {
	v, err := Weights([]string{"A"}, []float64{1.7})
	require.NoError(t, err)
	preds := []gmpe.Prediction{{Model: "A", PGA: []float64{0.3, 0.2, 0.1, 0.05}}}
	mask := []bool{true, true, true, false}

	c, err := Combine(v, preds, mask)
	require.NoError(t, err)

	for i := range 3 {
		assert.Equal(t, c.Masked[0].PGA[i], c.PGA[i])
	}
	assert.True(t, math.IsNaN(c.PGA[3]))
}

func TestCombine_NaNInsideRadiusPropagates(t *testing.T) {
	v := Vector{Weights: []Weight{{Model: "A", Value: 0.5}, {Model: "B", Value: 0.5}}}
	preds := []gmpe.Prediction{
		{Model: "A", PGA: []float64{1, math.NaN()}},
		{Model: "B", PGA: []float64{1, 1}},
	}

	c, err := Combine(v, preds, []bool{true, true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.PGA[0])
	assert.True(t, math.IsNaN(c.PGA[1]))
}

func TestCombine_NoPositiveWeight(t *testing.T) {
	v := Vector{Weights: []Weight{{Model: "A", Excluded: true}, {Model: "B", Value: 0}}, Status: StatusAllExcluded}
	preds := []gmpe.Prediction{{Model: "A", PGA: []float64{1}}, {Model: "B", PGA: []float64{1}}}

	_, err := Combine(v, preds, []bool{true})
	assert.ErrorIs(t, err, ErrNoEnsemble)
}

func TestCombine_Misaligned(t *testing.T) {
	v := Vector{Weights: []Weight{{Model: "A", Value: 1}}}

	_, err := Combine(v, []gmpe.Prediction{{Model: "B", PGA: []float64{1}}}, []bool{true})
	require.Error(t, err)

	_, err = Combine(v, []gmpe.Prediction{{Model: "A", PGA: []float64{1, 2}}}, []bool{true})
	require.Error(t, err)

	_, err = Combine(v, nil, []bool{true})
	require.Error(t, err)
}

func TestInRadius(t *testing.T) {
	assert.Equal(t, []float64{1, 3}, InRadius([]float64{1, 2, 3}, []bool{true, false, true}))
	assert.Empty(t, InRadius([]float64{1}, []bool{false}))
}
