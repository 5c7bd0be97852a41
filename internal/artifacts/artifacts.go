// Package artifacts loads the frozen model parameters a scoring worker needs:
// scalers, encoder tables, the embedding matrix and the three sub-models.
// Everything is read once at startup into a strongly-typed Bundle; a worker
// must not begin consuming without a complete, validated bundle.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fraudscore/internal/embedding"
	"fraudscore/internal/features"
	"fraudscore/internal/model"
)

// Artifact file names inside the artifacts directory.
const (
	FileNodeScaler    = "node_scaler.json"
	FileEdgeScaler    = "edge_scaler.json"
	FileOneHot        = "one_hot.json"
	FileTargetEncoder = "target_encoder.json"
	FileEmbeddings    = "embeddings.json"
	FileGraphModel    = "graph_model.json"
	FileTreeModel     = "tree_model.json"
	FileStacker       = "stacker.json"
)

// Bundle holds every frozen artifact, constructed once and never mutated.
type Bundle struct {
	NodeScaler *features.Scaler
	EdgeScaler *features.Scaler
	OneHot     *features.OneHotEncoder
	Target     *features.TargetEncoder
	Embeddings *embedding.Table
	Graph      *model.EdgeMLP
	Trees      *model.GradientBoostedTrees
	Stacker    *model.LogisticStacker
}

// embeddingsFile is the on-disk embedding matrix format.
type embeddingsFile struct {
	Vectors map[string][]float64 `json:"vectors"`
}

// Load reads and validates all artifacts from a directory. Any missing file,
// malformed document or inconsistent shape is an error; callers treat it as
// fatal at startup.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{
		NodeScaler: &features.Scaler{},
		EdgeScaler: &features.Scaler{},
		OneHot:     &features.OneHotEncoder{},
		Target:     &features.TargetEncoder{},
		Graph:      &model.EdgeMLP{},
		Trees:      &model.GradientBoostedTrees{},
		Stacker:    &model.LogisticStacker{},
	}

	for file, dst := range map[string]any{
		FileNodeScaler:    b.NodeScaler,
		FileEdgeScaler:    b.EdgeScaler,
		FileOneHot:        b.OneHot,
		FileTargetEncoder: b.Target,
		FileGraphModel:    b.Graph,
		FileTreeModel:     b.Trees,
		FileStacker:       b.Stacker,
	} {
		if err := readJSON(filepath.Join(dir, file), dst); err != nil {
			return nil, err
		}
	}

	var embFile embeddingsFile
	if err := readJSON(filepath.Join(dir, FileEmbeddings), &embFile); err != nil {
		return nil, err
	}
	table, err := embedding.New(embFile.Vectors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FileEmbeddings, err)
	}
	b.Embeddings = table

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks each artifact and their cross-component shapes.
func (b *Bundle) Validate() error {
	for name, v := range map[string]interface{ Validate() error }{
		FileNodeScaler:    b.NodeScaler,
		FileEdgeScaler:    b.EdgeScaler,
		FileOneHot:        b.OneHot,
		FileTargetEncoder: b.Target,
		FileGraphModel:    b.Graph,
		FileTreeModel:     b.Trees,
		FileStacker:       b.Stacker,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	cols, err := features.NewColumns(b.NodeScaler, b.EdgeScaler, b.OneHot, b.Target)
	if err != nil {
		return err
	}

	if want := b.Embeddings.Dim() + cols.EdgeLen(); b.Graph.InputDim() != want {
		return fmt.Errorf("%s: input dim %d, want embedding %d + edge features %d",
			FileGraphModel, b.Graph.InputDim(), b.Embeddings.Dim(), cols.EdgeLen())
	}
	if max := b.Trees.MaxFeatureIndex(); max >= cols.Len() {
		return fmt.Errorf("%s: split references feature %d, vector has %d",
			FileTreeModel, max, cols.Len())
	}
	return nil
}

// readJSON decodes one artifact file.
func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}
