package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/san-kum/mpcdrive/internal/mpc"
)

func checkDerivatives(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	h := cfg.MPCHorizon()
	if len(coeffs) != 4 {
		return fmt.Errorf("%w: got %d", mpc.ErrCoeffs, len(coeffs))
	}

	n := h.Layout().Len()
	rng := rand.New(rand.NewSource(1))
	x := make([]float64, n)
	d := make([]float64, n)
	for i := range x {
		x[i] = 0.1 * rng.NormFloat64()
		d[i] = rng.NormFloat64()
	}

	rep := mpc.CheckDerivatives(h, cfg.MPCWeights(), coeffs, x, d)

	fmt.Printf("variables: %d, constraints: %d, jacobian non-zeros: %d (%.1f%%)\n",
		rep.Vars, rep.Rows, rep.NonZeros, 100*float64(rep.NonZeros)/float64(rep.Vars*rep.Rows))
	fmt.Printf("gradient vs finite difference:   %.3e\n", rep.GradientErr)
	fmt.Printf("gradient vs dual direction:      %.3e\n", rep.DirectionalErr)
	fmt.Printf("jacobian vs dual direction:      %.3e\n", rep.JacobianErr)
	fmt.Printf("hessian vs gradient difference:  %.3e\n", rep.HessianErr)

	if worst := max(rep.GradientErr, rep.DirectionalErr, rep.JacobianErr, rep.HessianErr); worst > 1e-4 {
		return fmt.Errorf("derivative mismatch %.3e", worst)
	}
	fmt.Println("ok")
	return nil
}
