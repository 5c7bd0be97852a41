package features

import "fmt"

// Scaler holds frozen per-column standardization parameters for one numeric
// feature group.
type Scaler struct {
	Features []string  `json:"features"` // column names, fitted order
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// Validate checks the parameter shapes.
func (s *Scaler) Validate() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("scaler: no features")
	}
	if len(s.Mean) != len(s.Features) || len(s.Scale) != len(s.Features) {
		return fmt.Errorf("scaler: %d features, %d means, %d scales", len(s.Features), len(s.Mean), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 {
			return fmt.Errorf("scaler: zero scale for %s", s.Features[i])
		}
	}
	return nil
}

// Apply standardizes values, which must follow the fitted column order.
func (s *Scaler) Apply(values []float64) ([]float64, error) {
	if len(values) != len(s.Features) {
		return nil, fmt.Errorf("scaler: got %d values, want %d", len(values), len(s.Features))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// OneHotEncoder holds the fitted category lists for the low-cardinality
// features. Unknown categories encode to the all-zero row.
type OneHotEncoder struct {
	Features   []string   `json:"features"`   // input column names
	Categories [][]string `json:"categories"` // fitted categories per feature, in output order
}

// Validate checks the parameter shapes.
func (e *OneHotEncoder) Validate() error {
	if len(e.Features) == 0 {
		return fmt.Errorf("one-hot encoder: no features")
	}
	if len(e.Categories) != len(e.Features) {
		return fmt.Errorf("one-hot encoder: %d features, %d category lists", len(e.Features), len(e.Categories))
	}
	for i, cats := range e.Categories {
		if len(cats) == 0 {
			return fmt.Errorf("one-hot encoder: no categories for %s", e.Features[i])
		}
	}
	return nil
}

// ColumnNames returns the output column names, e.g. "category_shopping_pos".
func (e *OneHotEncoder) ColumnNames() []string {
	var names []string
	for i, feat := range e.Features {
		for _, cat := range e.Categories[i] {
			names = append(names, feat+"_"+cat)
		}
	}
	return names
}

// Width returns the total number of output columns.
func (e *OneHotEncoder) Width() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// Encode one-hot encodes the given values, one per input feature.
func (e *OneHotEncoder) Encode(values []string) ([]float64, error) {
	if len(values) != len(e.Features) {
		return nil, fmt.Errorf("one-hot encoder: got %d values, want %d", len(values), len(e.Features))
	}
	out := make([]float64, 0, e.Width())
	for i, cats := range e.Categories {
		row := make([]float64, len(cats))
		for j, cat := range cats {
			if values[i] == cat {
				row[j] = 1
				break
			}
		}
		out = append(out, row...)
	}
	return out, nil
}

// TargetEncoder holds frozen smoothed per-category means for the
// high-cardinality features. Unknown categories encode to the fitted prior.
type TargetEncoder struct {
	Features []string             `json:"features"`
	Mapping  []map[string]float64 `json:"mapping"` // per feature: category -> encoded mean
	Prior    []float64            `json:"prior"`   // per feature: fallback for unseen categories
}

// Validate checks the parameter shapes.
func (e *TargetEncoder) Validate() error {
	if len(e.Features) == 0 {
		return fmt.Errorf("target encoder: no features")
	}
	if len(e.Mapping) != len(e.Features) || len(e.Prior) != len(e.Features) {
		return fmt.Errorf("target encoder: %d features, %d mappings, %d priors", len(e.Features), len(e.Mapping), len(e.Prior))
	}
	return nil
}

// Encode maps values to their learned means, one per input feature.
func (e *TargetEncoder) Encode(values []string) ([]float64, error) {
	if len(values) != len(e.Features) {
		return nil, fmt.Errorf("target encoder: got %d values, want %d", len(values), len(e.Features))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if enc, ok := e.Mapping[i][v]; ok {
			out[i] = enc
		} else {
			out[i] = e.Prior[i]
		}
	}
	return out, nil
}
