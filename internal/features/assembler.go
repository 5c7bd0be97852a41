package features

import (
	"fmt"
	"strconv"

	"fraudscore/internal/domain"
)

// Assembler builds the fixed-order feature vector from a score request,
// applying the frozen scalers and encoders. Immutable after construction and
// safe for concurrent use.
type Assembler struct {
	node   *Scaler
	edge   *Scaler
	ohe    *OneHotEncoder
	target *TargetEncoder
	cols   *Columns
}

// NewAssembler validates the artifacts and derives the column layout.
func NewAssembler(node, edge *Scaler, ohe *OneHotEncoder, target *TargetEncoder) (*Assembler, error) {
	for name, v := range map[string]interface{ Validate() error }{
		"node scaler":     node,
		"edge scaler":     edge,
		"one-hot encoder": ohe,
		"target encoder":  target,
	} {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	cols, err := NewColumns(node, edge, ohe, target)
	if err != nil {
		return nil, err
	}

	a := &Assembler{node: node, edge: edge, ohe: ohe, target: target, cols: cols}

	// Every numeric column the scalers declare must be resolvable; catching
	// a bad artifact here beats a per-request error in the worker loop.
	probe := &domain.ScoreRequest{DOB: "1990-01-01", TransDateTransTime: "2024-01-01 00:00:00"}
	inst, err := ComputeInstant(probe)
	if err != nil {
		return nil, err
	}
	for _, name := range append(append([]string{}, node.Features...), edge.Features...) {
		if _, err := numericValue(name, probe, inst); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Columns returns the derived vector layout.
func (a *Assembler) Columns() *Columns {
	return a.cols
}

// Assemble builds the full feature vector for one request. The output always
// has length Columns().Len() and follows the fitted column order exactly.
func (a *Assembler) Assemble(req *domain.ScoreRequest) ([]float64, error) {
	inst, err := ComputeInstant(req)
	if err != nil {
		return nil, err
	}

	nodeVals := make([]float64, len(a.node.Features))
	for i, name := range a.node.Features {
		if nodeVals[i], err = numericValue(name, req, inst); err != nil {
			return nil, err
		}
	}
	nodeScaled, err := a.node.Apply(nodeVals)
	if err != nil {
		return nil, err
	}

	edgeVals := make([]float64, len(a.edge.Features))
	for i, name := range a.edge.Features {
		if edgeVals[i], err = numericValue(name, req, inst); err != nil {
			return nil, err
		}
	}
	edgeScaled, err := a.edge.Apply(edgeVals)
	if err != nil {
		return nil, err
	}

	oheVals := make([]string, len(a.ohe.Features))
	for i, name := range a.ohe.Features {
		if oheVals[i], err = categoricalValue(name, req, inst); err != nil {
			return nil, err
		}
	}
	oheRow, err := a.ohe.Encode(oheVals)
	if err != nil {
		return nil, err
	}

	targetVals := make([]string, len(a.target.Features))
	for i, name := range a.target.Features {
		if targetVals[i], err = categoricalValue(name, req, inst); err != nil {
			return nil, err
		}
	}
	targetRow, err := a.target.Encode(targetVals)
	if err != nil {
		return nil, err
	}

	asIs := []float64{inst.Gender, inst.IsWeekend, inst.IsBusinessHour, inst.IsNight}

	full := make([]float64, 0, a.cols.Len())
	full = append(full, nodeScaled...)
	full = append(full, edgeScaled...)
	full = append(full, oheRow...)
	full = append(full, targetRow...)
	full = append(full, asIs...)
	return full, nil
}

// numericValue resolves one named numeric feature.
func numericValue(name string, req *domain.ScoreRequest, inst Instant) (float64, error) {
	switch name {
	case "amt":
		return req.Amt, nil
	case "city_pop":
		return float64(req.CityPop), nil
	case "distance_km":
		return inst.DistanceKm, nil
	case "age":
		return float64(inst.Age), nil
	case "time_diff_h":
		return req.TimeDiffHours, nil
	case "prev_amount":
		return req.PrevAmount, nil
	case "amount_diff":
		return req.AmountDiff, nil
	case "amount_ratio":
		return req.AmountRatio, nil
	case "roll_mean_amt_5":
		return req.RollMeanAmt5, nil
	case "roll_std_amt_5":
		return req.RollStdAmt5, nil
	case "unique_merch_last_30d":
		return float64(req.UniqueMerchLast30d), nil
	default:
		return 0, fmt.Errorf("unknown numeric feature %s", name)
	}
}

// categoricalValue resolves one named categorical feature.
func categoricalValue(name string, req *domain.ScoreRequest, inst Instant) (string, error) {
	switch name {
	case "category":
		return req.Category, nil
	case "dayofweek":
		return inst.DayOfWeek, nil
	case "hour":
		return strconv.Itoa(inst.Hour), nil
	case "month":
		return strconv.Itoa(inst.Month), nil
	case "job":
		return req.Job, nil
	case "state":
		return req.State, nil
	default:
		return "", fmt.Errorf("unknown categorical feature %s", name)
	}
}
