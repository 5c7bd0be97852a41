// Package embedding holds the learned entity embedding table with its
// out-of-vocabulary fallback.
package embedding

import (
	"fmt"
	"math"
)

// Table maps entity identifiers to fixed-length learned vectors. Unknown
// identifiers resolve to the OOV vector, the arithmetic mean of all known
// embeddings computed once at construction. The table is immutable after
// New returns and safe for concurrent lookup without locking.
type Table struct {
	dim     int
	vectors map[string][]float64
	oov     []float64
}

// New builds a table from the given vectors. All vectors must share one
// dimension and the map must be non-empty.
func New(vectors map[string][]float64) (*Table, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding table: no vectors")
	}

	dim := -1
	for id, v := range vectors {
		if dim == -1 {
			dim = len(v)
		}
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("embedding table: vector %q has %d dims, want %d", id, len(v), dim)
		}
		for i, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("embedding table: vector %q is non-finite at %d", id, i)
			}
		}
	}

	oov := make([]float64, dim)
	stored := make(map[string][]float64, len(vectors))
	for id, v := range vectors {
		cp := make([]float64, dim)
		copy(cp, v)
		stored[id] = cp
		for i, x := range v {
			oov[i] += x
		}
	}
	for i := range oov {
		oov[i] /= float64(len(vectors))
	}

	return &Table{dim: dim, vectors: stored, oov: oov}, nil
}

// Dim returns the embedding dimension.
func (t *Table) Dim() int {
	return t.dim
}

// Lookup returns the stored vector for a known entity, the OOV vector
// otherwise. An unknown entity is not an error. Callers must not modify the
// returned slice.
func (t *Table) Lookup(id string) []float64 {
	if v, ok := t.vectors[id]; ok {
		return v
	}
	return t.oov
}

// OOV returns the fallback vector. Callers must not modify it.
func (t *Table) OOV() []float64 {
	return t.oov
}

// Size returns the number of known entities.
func (t *Table) Size() int {
	return len(t.vectors)
}

// Known reports whether the entity has a learned embedding.
func (t *Table) Known(id string) bool {
	_, ok := t.vectors[id]
	return ok
}
