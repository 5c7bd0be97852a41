package model

import (
	"fmt"
	"math"
)

// EdgeMLP is the frozen edge classifier head of the graph model: a two-layer
// perceptron scoring [entity embedding ++ edge features] to a single logit.
type EdgeMLP struct {
	W1 [][]float64 `json:"w1"` // hidden x input
	B1 []float64   `json:"b1"` // hidden
	W2 []float64   `json:"w2"` // hidden (output layer weights)
	B2 float64     `json:"b2"` // output bias
}

// InputDim returns the expected input vector length.
func (m *EdgeMLP) InputDim() int {
	if len(m.W1) == 0 {
		return 0
	}
	return len(m.W1[0])
}

// Validate checks the weight shapes are mutually consistent.
func (m *EdgeMLP) Validate() error {
	hidden := len(m.W1)
	if hidden == 0 {
		return fmt.Errorf("edge mlp: empty first layer")
	}
	in := len(m.W1[0])
	for i, row := range m.W1 {
		if len(row) != in {
			return fmt.Errorf("edge mlp: W1 row %d has %d weights, want %d", i, len(row), in)
		}
	}
	if len(m.B1) != hidden {
		return fmt.Errorf("edge mlp: B1 has %d biases, want %d", len(m.B1), hidden)
	}
	if len(m.W2) != hidden {
		return fmt.Errorf("edge mlp: W2 has %d weights, want %d", len(m.W2), hidden)
	}
	return nil
}

// Forward evaluates the perceptron and returns the sigmoid-transformed
// probability. Returns ErrScoringFault on NaN/Inf input or output.
func (m *EdgeMLP) Forward(x []float64) (float64, error) {
	if len(x) != m.InputDim() {
		return 0, fmt.Errorf("edge mlp: input has %d features, want %d", len(x), m.InputDim())
	}
	if err := CheckVector(x); err != nil {
		return 0, err
	}

	logit := m.B2
	for j := range m.W1 {
		h := m.B1[j]
		for i, w := range m.W1[j] {
			h += w * x[i]
		}
		if h > 0 { // ReLU
			logit += m.W2[j] * h
		}
	}

	p := Sigmoid(logit)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("%w: graph branch produced NaN", ErrScoringFault)
	}
	return p, nil
}

// Sigmoid is the logistic transform.
func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// CheckVector returns ErrScoringFault if the vector contains NaN or Inf.
func CheckVector(x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value at position %d", ErrScoringFault, i)
		}
	}
	return nil
}
