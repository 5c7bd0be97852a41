package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1.0, Sigmoid(40), 1e-12)
	assert.InDelta(t, 0.0, Sigmoid(-40), 1e-12)
}

func TestCheckVector(t *testing.T) {
	require.NoError(t, CheckVector([]float64{0, -1.5, 1e9}))
	require.ErrorIs(t, CheckVector([]float64{0, math.NaN()}), ErrScoringFault)
	require.ErrorIs(t, CheckVector([]float64{math.Inf(1)}), ErrScoringFault)
	require.ErrorIs(t, CheckVector([]float64{math.Inf(-1)}), ErrScoringFault)
}

func testMLP() *EdgeMLP {
	return &EdgeMLP{
		W1: [][]float64{{1, 0}, {0, -1}},
		B1: []float64{0, 0.5},
		W2: []float64{1, 1},
		B2: -0.5,
	}
}

func TestEdgeMLPForward(t *testing.T) {
	m := testMLP()
	require.NoError(t, m.Validate())
	require.Equal(t, 2, m.InputDim())

	// Hidden: relu(1*2) = 2, relu(0.5 - 3) cut to 0. Logit = 2 - 0.5.
	p, err := m.Forward([]float64{2, 3})
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(1.5), p, 1e-12)

	_, err = m.Forward([]float64{1})
	require.Error(t, err, "dimension mismatch must fail")

	_, err = m.Forward([]float64{math.NaN(), 0})
	require.ErrorIs(t, err, ErrScoringFault)
}

func TestEdgeMLPValidate(t *testing.T) {
	m := testMLP()
	m.B1 = []float64{0}
	require.Error(t, m.Validate())

	m = testMLP()
	m.W1[1] = []float64{1}
	require.Error(t, m.Validate())

	m = &EdgeMLP{}
	require.Error(t, m.Validate())
}

func testTrees() *GradientBoostedTrees {
	return &GradientBoostedTrees{
		Bias: 0.1,
		Trees: []Tree{
			{Nodes: []TreeNode{
				{Feature: 0, Threshold: 1.0, Left: 1, Right: 2},
				{Feature: -1, Value: -0.5},
				{Feature: -1, Value: 0.7},
			}},
			{Nodes: []TreeNode{
				{Feature: 1, Threshold: 0.0, Left: 1, Right: 2},
				{Feature: -1, Value: 0.2},
				{Feature: -1, Value: -0.1},
			}},
		},
	}
}

func TestBoostedTreesForward(t *testing.T) {
	g := testTrees()
	require.NoError(t, g.Validate())
	require.Equal(t, 1, g.MaxFeatureIndex())

	// x[0] < 1 -> -0.5, x[1] >= 0 -> -0.1, raw = 0.1 - 0.5 - 0.1.
	p, err := g.Forward([]float64{0.5, 0.0})
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(-0.5), p, 1e-12)

	// Threshold comparison is strict: x[0] == 1.0 goes right.
	p, err = g.Forward([]float64{1.0, -1.0})
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(0.1+0.7+0.2), p, 1e-12)

	_, err = g.Forward([]float64{0.5})
	require.Error(t, err, "splits past the vector length must fail")

	_, err = g.Forward([]float64{math.NaN(), 0})
	require.ErrorIs(t, err, ErrScoringFault)
}

func TestBoostedTreesValidateRejectsBadChildren(t *testing.T) {
	g := &GradientBoostedTrees{Trees: []Tree{
		{Nodes: []TreeNode{
			{Feature: 0, Threshold: 1.0, Left: 0, Right: 1}, // self-referential
			{Feature: -1, Value: 0.5},
		}},
	}}
	require.Error(t, g.Validate())

	g = &GradientBoostedTrees{Trees: []Tree{
		{Nodes: []TreeNode{
			{Feature: 0, Threshold: 1.0, Left: 1, Right: 5}, // out of range
			{Feature: -1, Value: 0.5},
		}},
	}}
	require.Error(t, g.Validate())

	require.Error(t, (&GradientBoostedTrees{}).Validate())
}

func TestLogisticStackerForward(t *testing.T) {
	s := &LogisticStacker{Coef: []float64{2, -1}, Intercept: 0.5}
	require.NoError(t, s.Validate())

	p, err := s.Forward(0.8, 0.3)
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(2*0.8-1*0.3+0.5), p, 1e-12)

	_, err = s.Forward(math.NaN(), 0.3)
	require.ErrorIs(t, err, ErrScoringFault)

	require.Error(t, (&LogisticStacker{Coef: []float64{1}}).Validate())
}

func TestEnsembleScore(t *testing.T) {
	e := &Ensemble{
		Graph:   testMLP(),
		Trees:   testTrees(),
		Stacker: &LogisticStacker{Coef: []float64{1, 1}, Intercept: -1},
	}

	scores, err := e.Score([]float64{2}, []float64{3}, []float64{0.5, 0.0})
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(1.5), scores.PGraph, 1e-12)
	assert.InDelta(t, Sigmoid(-0.5), scores.PTree, 1e-12)
	assert.InDelta(t, Sigmoid(scores.PGraph+scores.PTree-1), scores.PFinal, 1e-12)

	for _, p := range []float64{scores.PGraph, scores.PTree, scores.PFinal} {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestEnsembleScoreFaultPropagates(t *testing.T) {
	e := &Ensemble{
		Graph:   testMLP(),
		Trees:   testTrees(),
		Stacker: &LogisticStacker{Coef: []float64{1, 1}, Intercept: -1},
	}

	_, err := e.Score([]float64{math.Inf(1)}, []float64{3}, []float64{0.5, 0.0})
	require.ErrorIs(t, err, ErrScoringFault)
}
