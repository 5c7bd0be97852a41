package model

import "errors"

// ErrScoringFault is returned when a model evaluation hits a numeric fault:
// NaN or Inf in the input vector, or a stage probability outside [0,1].
// Faults are deterministic; retrying the same input fails identically.
var ErrScoringFault = errors.New("scoring fault")
