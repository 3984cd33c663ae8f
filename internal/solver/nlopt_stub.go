//go:build !nlopt

package solver

// NewSLSQP reports ErrUnavailable unless the binary was built with
// -tags nlopt.
func NewSLSQP() (Solver, error) {
	return nil, ErrUnavailable
}
