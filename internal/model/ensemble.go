package model

import "fmt"

// Scores holds the per-stage probabilities of one ensemble evaluation.
type Scores struct {
	PGraph float64 // graph-branch probability
	PTree  float64 // tree-branch probability
	PFinal float64 // blended probability
}

// Ensemble composes the three frozen evaluators: the graph-edge classifier
// over [embedding ++ edge features], the boosted trees over the full feature
// vector, and the logistic stacker over the two probabilities.
type Ensemble struct {
	Graph   *EdgeMLP
	Trees   *GradientBoostedTrees
	Stacker *LogisticStacker
}

// Score evaluates the full ensemble. Every stage probability must land in
// [0,1]; anything else is a scoring fault, never clamped.
func (e *Ensemble) Score(embedding, edgeFeatures, full []float64) (Scores, error) {
	graphIn := make([]float64, 0, len(embedding)+len(edgeFeatures))
	graphIn = append(graphIn, embedding...)
	graphIn = append(graphIn, edgeFeatures...)

	pGraph, err := e.Graph.Forward(graphIn)
	if err != nil {
		return Scores{}, fmt.Errorf("graph branch: %w", err)
	}

	pTree, err := e.Trees.Forward(full)
	if err != nil {
		return Scores{}, fmt.Errorf("tree branch: %w", err)
	}

	pFinal, err := e.Stacker.Forward(pGraph, pTree)
	if err != nil {
		return Scores{}, fmt.Errorf("stacker: %w", err)
	}

	scores := Scores{PGraph: pGraph, PTree: pTree, PFinal: pFinal}
	for _, p := range []float64{pGraph, pTree, pFinal} {
		if !(p >= 0 && p <= 1) {
			return Scores{}, fmt.Errorf("%w: probability %v outside [0,1]", ErrScoringFault, p)
		}
	}
	return scores, nil
}
