package mpc

import (
	"errors"
	"fmt"
)

var (
	// ErrCoeffs reports a reference curve of the wrong degree.
	ErrCoeffs = errors.New("mpc: wrong number of reference coefficients")

	// ErrHorizon reports an unusable horizon configuration.
	ErrHorizon = errors.New("mpc: invalid horizon")

	ErrWeight = errors.New("mpc: invalid weight")
)

// SolveError wraps a failed solve with the state it was asked about.
type SolveError struct {
	Speed   float64
	CTE     float64
	EPsi    float64
	Wrapped error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("mpc: solve at v=%.2f cte=%.3f epsi=%.3f: %v", e.Speed, e.CTE, e.EPsi, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
