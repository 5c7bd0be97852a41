package model

import "fmt"

// LogisticStacker is the frozen meta-model blending the base-model
// probabilities into the final score.
type LogisticStacker struct {
	Coef      []float64 `json:"coef"`      // one weight per base model
	Intercept float64   `json:"intercept"` // bias
}

// Validate checks the stacker blends exactly the two base models.
func (s *LogisticStacker) Validate() error {
	if len(s.Coef) != 2 {
		return fmt.Errorf("stacker: has %d coefficients, want 2", len(s.Coef))
	}
	return nil
}

// Forward blends the graph and tree probabilities into the final one.
func (s *LogisticStacker) Forward(pGraph, pTree float64) (float64, error) {
	if err := CheckVector([]float64{pGraph, pTree}); err != nil {
		return 0, err
	}
	return Sigmoid(s.Coef[0]*pGraph + s.Coef[1]*pTree + s.Intercept), nil
}
