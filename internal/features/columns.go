package features

import (
	"fmt"
	"strings"
)

// Pass-through column order, fixed by the fitted preprocessor.
var asIsColumns = []string{"gender", "is_weekend", "is_business_hour", "is_night"}

// Leading numeric columns of the graph-branch slice, fixed by the fitted
// graph model.
var edgeOrderNumericHead = []string{
	"amt", "prev_amount", "amount_diff", "amount_ratio",
	"roll_mean_amt_5", "roll_std_amt_5", "time_diff_h",
}

// Columns describes the full feature vector layout: the concatenation of
// node-numeric, edge-numeric, one-hot, target-encoded and pass-through
// groups, in that fixed order. The layout is a contract with the fitted
// models and is constant for the process lifetime.
type Columns struct {
	Node     []string // node-numeric names
	Edge     []string // edge-numeric names
	LowOHE   []string // one-hot output names
	HighCard []string // target-encoded names
	AsIs     []string // pass-through names
	Full     []string // all of the above, concatenated

	index     map[string]int
	edgeOrder []int // positions in Full feeding the graph branch, in its fitted order
}

// NewColumns derives the layout from the fitted preprocessing artifacts.
func NewColumns(node, edge *Scaler, ohe *OneHotEncoder, target *TargetEncoder) (*Columns, error) {
	c := &Columns{
		Node:     node.Features,
		Edge:     edge.Features,
		LowOHE:   ohe.ColumnNames(),
		HighCard: target.Features,
		AsIs:     asIsColumns,
	}

	c.Full = make([]string, 0, len(c.Node)+len(c.Edge)+len(c.LowOHE)+len(c.HighCard)+len(c.AsIs))
	for _, group := range [][]string{c.Node, c.Edge, c.LowOHE, c.HighCard, c.AsIs} {
		c.Full = append(c.Full, group...)
	}

	c.index = make(map[string]int, len(c.Full))
	for i, name := range c.Full {
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("columns: duplicate column %s", name)
		}
		c.index[name] = i
	}

	edgeOrder, err := c.buildEdgeOrder(ohe)
	if err != nil {
		return nil, err
	}
	c.edgeOrder = edgeOrder
	return c, nil
}

// buildEdgeOrder resolves the graph-branch column order: the named numerics,
// then the day-of-week, hour and month indicators, the flags, the
// counterparty count, the category indicators and the distance, exactly as
// the graph model was fitted.
func (c *Columns) buildEdgeOrder(ohe *OneHotEncoder) ([]int, error) {
	names := make([]string, 0, 69)
	names = append(names, edgeOrderNumericHead...)
	names = append(names, c.oheColumns(ohe, "dayofweek")...)
	names = append(names, c.oheColumns(ohe, "hour")...)
	names = append(names, c.oheColumns(ohe, "month")...)
	names = append(names, "is_night", "is_business_hour", "is_weekend", "unique_merch_last_30d")
	names = append(names, c.oheColumns(ohe, "category")...)
	names = append(names, "distance_km")

	order := make([]int, len(names))
	for i, name := range names {
		pos, ok := c.index[name]
		if !ok {
			return nil, fmt.Errorf("columns: graph branch references unknown column %s", name)
		}
		order[i] = pos
	}
	return order, nil
}

// oheColumns returns the one-hot output names of a single input feature.
func (c *Columns) oheColumns(ohe *OneHotEncoder, feature string) []string {
	var names []string
	for _, name := range ohe.ColumnNames() {
		if strings.HasPrefix(name, feature+"_") {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the full vector length.
func (c *Columns) Len() int {
	return len(c.Full)
}

// EdgeLen returns the graph-branch slice length.
func (c *Columns) EdgeLen() int {
	return len(c.edgeOrder)
}

// Index returns the position of a named column in the full vector.
func (c *Columns) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// EdgeSlice extracts the graph-branch features from a full vector.
func (c *Columns) EdgeSlice(full []float64) []float64 {
	out := make([]float64, len(c.edgeOrder))
	for i, pos := range c.edgeOrder {
		out[i] = full[pos]
	}
	return out
}
