package artifacts

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"fraudscore/internal/embedding"
	"fraudscore/internal/features"
	"fraudscore/internal/model"
)

// Fixture entity ids with learned embeddings.
const (
	FixtureKnownEntity  = "cc-known-1"
	FixtureKnownEntity2 = "cc-known-2"
)

// fixtureEmbeddingDim and fixtureHidden size the fixture graph model.
const (
	fixtureEmbeddingDim = 8
	fixtureHidden       = 4
)

var fixtureCategories = []string{
	"entertainment", "food_dining", "gas_transport", "grocery_net",
	"grocery_pos", "health_fitness", "home", "kids_pets",
	"misc_net", "misc_pos", "personal_care", "shopping_net",
	"shopping_pos", "travel",
}

var fixtureDays = []string{
	"Friday", "Monday", "Saturday", "Sunday", "Thursday", "Tuesday", "Wednesday",
}

// fixtureParts builds every artifact deterministically. The layout matches
// production: 2 node numerics, 9 edge numerics, 57 one-hot columns, 2
// target-encoded columns and 4 pass-through flags.
func fixtureParts() (*features.Scaler, *features.Scaler, *features.OneHotEncoder, *features.TargetEncoder, map[string][]float64, *model.EdgeMLP, *model.GradientBoostedTrees, *model.LogisticStacker) {
	node := &features.Scaler{
		Features: []string{"city_pop", "age"},
		Mean:     []float64{88221.0, 46.2},
		Scale:    []float64{301390.0, 17.4},
	}
	edge := &features.Scaler{
		Features: []string{
			"amt", "distance_km", "time_diff_h", "prev_amount", "amount_diff",
			"amount_ratio", "roll_mean_amt_5", "roll_std_amt_5", "unique_merch_last_30d",
		},
		Mean:  []float64{70.3, 76.1, 24.8, 69.9, 0.4, 5.2, 70.1, 48.7, 6.3},
		Scale: []float64{160.3, 29.1, 60.2, 159.8, 226.4, 31.7, 83.9, 61.2, 4.8},
	}

	hours := make([]string, 24)
	for i := range hours {
		hours[i] = strconv.Itoa(i)
	}
	months := make([]string, 12)
	for i := range months {
		months[i] = strconv.Itoa(i + 1)
	}
	ohe := &features.OneHotEncoder{
		Features:   []string{"category", "dayofweek", "hour", "month"},
		Categories: [][]string{fixtureCategories, fixtureDays, hours, months},
	}

	target := &features.TargetEncoder{
		Features: []string{"job", "state"},
		Mapping: []map[string]float64{
			{"Engineer": 0.0042, "Therapist": 0.0081, "Comptroller": 0.0123},
			{"NY": 0.0051, "CA": 0.0047, "TX": 0.0062},
		},
		Prior: []float64{0.0057, 0.0057},
	}

	vectors := map[string][]float64{}
	for id, seed := range map[string]float64{FixtureKnownEntity: 1, FixtureKnownEntity2: 2, "cc-known-3": 3} {
		vec := make([]float64, fixtureEmbeddingDim)
		for i := range vec {
			vec[i] = 0.1 * seed * math.Sin(float64(i+1)*seed)
		}
		vectors[id] = vec
	}

	in := fixtureEmbeddingDim + edgeLen(node, edge, ohe, target)
	w1 := make([][]float64, fixtureHidden)
	b1 := make([]float64, fixtureHidden)
	for j := range w1 {
		w1[j] = make([]float64, in)
		for i := range w1[j] {
			w1[j][i] = 0.01 * math.Sin(float64(j*in+i+1))
		}
		b1[j] = 0.05 * float64(j-1)
	}
	graph := &model.EdgeMLP{
		W1: w1,
		B1: b1,
		W2: []float64{0.6, -0.4, 0.5, -0.3},
		B2: -2.0,
	}

	// Splits on scaled amt (index 2) and the is_night flag (last column).
	cols := len(node.Features) + len(edge.Features) + ohe.Width() + len(target.Features) + 4
	trees := &model.GradientBoostedTrees{
		Bias: -2.0,
		Trees: []model.Tree{
			{Nodes: []model.TreeNode{
				{Feature: 2, Threshold: 0.0, Left: 1, Right: 2},
				{Feature: -1, Value: -0.8},
				{Feature: -1, Value: 0.9},
			}},
			{Nodes: []model.TreeNode{
				{Feature: cols - 1, Threshold: 0.5, Left: 1, Right: 2},
				{Feature: -1, Value: -0.3},
				{Feature: -1, Value: 0.4},
			}},
		},
	}

	stacker := &model.LogisticStacker{Coef: []float64{1.6, 1.4}, Intercept: -2.1}

	return node, edge, ohe, target, vectors, graph, trees, stacker
}

// edgeLen resolves the graph-branch slice length of the fixture layout.
func edgeLen(node, edge *features.Scaler, ohe *features.OneHotEncoder, target *features.TargetEncoder) int {
	cols, err := features.NewColumns(node, edge, ohe, target)
	if err != nil {
		panic(fmt.Sprintf("fixture layout: %v", err))
	}
	return cols.EdgeLen()
}

// NewTestBundle returns a deterministic, fully validated artifact bundle with
// the production column layout. Intended for tests.
func NewTestBundle() *Bundle {
	node, edge, ohe, target, vectors, graph, trees, stacker := fixtureParts()

	table, err := embedding.New(vectors)
	if err != nil {
		panic(fmt.Sprintf("fixture embeddings: %v", err))
	}

	b := &Bundle{
		NodeScaler: node,
		EdgeScaler: edge,
		OneHot:     ohe,
		Target:     target,
		Embeddings: table,
		Graph:      graph,
		Trees:      trees,
		Stacker:    stacker,
	}
	if err := b.Validate(); err != nil {
		panic(fmt.Sprintf("fixture bundle: %v", err))
	}
	return b
}

// WriteTestArtifacts serializes the fixture artifacts into a directory in
// the on-disk format Load expects.
func WriteTestArtifacts(dir string) error {
	node, edge, ohe, target, vectors, graph, trees, stacker := fixtureParts()

	files := map[string]any{
		FileNodeScaler:    node,
		FileEdgeScaler:    edge,
		FileOneHot:        ohe,
		FileTargetEncoder: target,
		FileEmbeddings:    embeddingsFile{Vectors: vectors},
		FileGraphModel:    graph,
		FileTreeModel:     trees,
		FileStacker:       stacker,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
