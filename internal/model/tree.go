package model

import "fmt"

// TreeNode is one node of a decision tree in flattened form. Leaf nodes have
// Feature == -1 and carry the leaf score in Value.
type TreeNode struct {
	Feature   int     `json:"feature"`   // feature index, -1 for leaves
	Threshold float64 `json:"threshold"` // split threshold (go left when x < threshold)
	Left      int     `json:"left"`      // left child index
	Right     int     `json:"right"`     // right child index
	Value     float64 `json:"value"`     // leaf score
}

// Tree is a single decision tree.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// score walks the tree for one input vector.
func (t *Tree) score(x []float64) (float64, error) {
	i := 0
	// A tree of n nodes terminates within n hops unless indices are cyclic,
	// which Validate rejects.
	for hops := 0; hops <= len(t.Nodes); hops++ {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return 0, fmt.Errorf("tree: traversal did not reach a leaf")
}

// GradientBoostedTrees is a frozen boosted-tree classifier: the sum of leaf
// scores across trees plus a bias, squashed through a sigmoid.
type GradientBoostedTrees struct {
	Trees []Tree  `json:"trees"`
	Bias  float64 `json:"bias"`
}

// MaxFeatureIndex returns the highest feature index referenced by any split.
func (g *GradientBoostedTrees) MaxFeatureIndex() int {
	max := -1
	for _, t := range g.Trees {
		for _, n := range t.Nodes {
			if n.Feature > max {
				max = n.Feature
			}
		}
	}
	return max
}

// Validate checks node indices are in range and non-cyclic enough to walk.
func (g *GradientBoostedTrees) Validate() error {
	if len(g.Trees) == 0 {
		return fmt.Errorf("boosted trees: no trees")
	}
	for ti, t := range g.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("boosted trees: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("boosted trees: tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}

// Forward evaluates the classifier and returns the probability.
// Returns ErrScoringFault on NaN/Inf input.
func (g *GradientBoostedTrees) Forward(x []float64) (float64, error) {
	if err := CheckVector(x); err != nil {
		return 0, err
	}
	if max := g.MaxFeatureIndex(); max >= len(x) {
		return 0, fmt.Errorf("boosted trees: input has %d features, splits reference index %d", len(x), max)
	}

	raw := g.Bias
	for i := range g.Trees {
		v, err := g.Trees[i].score(x)
		if err != nil {
			return 0, err
		}
		raw += v
	}
	return Sigmoid(raw), nil
}
