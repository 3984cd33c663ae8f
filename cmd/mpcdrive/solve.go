package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/pilot"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/vehicle"
	"github.com/san-kum/mpcdrive/internal/viz"
)

func solveOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := solver.New(cfg.Solver.Name)
	if err != nil {
		return err
	}
	ctrl, err := mpc.New(cfg.MPCHorizon(), cfg.MPCWeights(), s, logger)
	if err != nil {
		return err
	}
	ctrl = ctrl.WithOptions(cfg.SolverOptions())

	c := reference.Coeffs(coeffs)
	state := vehicle.State[float64]{V: speed}
	state.CTE, state.EPsi = reference.InitialErrors(c)
	if cmd.Flags().Changed("cte") {
		state.CTE = cte
	}
	if cmd.Flags().Changed("epsi") {
		state.EPsi = epsi
	}

	res, err := ctrl.Solve(state, c)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(res.Flat())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "solver\t%s\n", s.Name())
	fmt.Fprintf(w, "status\t%s\n", res.Status)
	fmt.Fprintf(w, "steering\t%.6f rad (%.3f of full lock)\n", res.Steering, pilot.NormalizeSteering(res.Steering))
	fmt.Fprintf(w, "throttle\t%.6f\n", res.Throttle)
	fmt.Fprintf(w, "cost\t%.4f\n", res.Cost)
	fmt.Fprintf(w, "violation\t%.2e\n", res.Violation)
	fmt.Fprintf(w, "iterations\t%d\n", res.Iterations)
	fmt.Fprintf(w, "elapsed\t%v\n", res.Elapsed)
	if err := w.Flush(); err != nil {
		return err
	}

	// reference curve sampled over the predicted x range
	predicted := reference.Zip(res.X, res.Y)
	maxX := 1.0
	for _, p := range predicted {
		maxX = math.Max(maxX, p.X)
	}
	ref := make([]reference.Point, 0, 40)
	for i := 0; i <= 40; i++ {
		x := maxX * float64(i) / 40
		ref = append(ref, reference.Point{X: x, Y: c.At(x)})
	}

	fmt.Println()
	fmt.Println("predicted path (vehicle frame) against the reference:")
	fmt.Print(viz.Map(60, 12, false, ref, append([]reference.Point{{}}, predicted...)))
	fmt.Println()
	fmt.Println(viz.Chart("lateral offset y: predicted vs reference", 60, 8, res.Y, sampleAt(c, res.X)))
	return nil
}

func sampleAt(c reference.Coeffs, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.At(x)
	}
	return out
}
