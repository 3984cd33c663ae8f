// Package optim tunes experiment parameters by exhaustive search.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/mpcdrive/internal/experiment"
)

var (
	ErrGrid     = errors.New("optim: invalid grid")
	ErrMetric   = errors.New("optim: metric not recorded")
	ErrNoResult = errors.New("optim: every trial failed")
)

// BuildFunc returns a ready (set up) experiment for one grid point.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Outcome struct {
	Best   map[string]float64
	Value  float64
	Trials []Trial
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Workers bounds the number of trials run at once. Each trial builds
	// its own experiment, so trials never share a controller.
	Workers int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, Workers: 1}
}

func (g *GridSearch) validate() error {
	if len(g.paramNames) == 0 {
		return fmt.Errorf("%w: no parameters", ErrGrid)
	}
	if len(g.paramNames) != len(g.ranges) {
		return fmt.Errorf("%w: %d names for %d ranges", ErrGrid, len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return fmt.Errorf("%w: empty range for %s", ErrGrid, g.paramNames[i])
		}
	}
	return nil
}

// Combinations enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Combinations() []map[string]float64 {
	var out []map[string]float64
	g.combine(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) combine(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val
		g.combine(depth+1, newParams, out)
	}
}

// Search runs every grid point and returns the one minimising metricName.
// Failed trials are kept in the outcome; Search only fails when the grid is
// invalid, ctx is cancelled or no trial produced a value. Ties go to the
// earlier grid point.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (*Outcome, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	combos := g.Combinations()
	trials := make([]Trial, len(combos))

	workers := g.Workers
	if workers <= 0 {
		workers = 1
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, params := range combos {
		i, params := i, params
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trials[i] = runTrial(gctx, build, params, metricName)
			if errors.Is(trials[i].Err, context.Canceled) || errors.Is(trials[i].Err, context.DeadlineExceeded) {
				return trials[i].Err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := &Outcome{Value: math.Inf(1), Trials: trials}
	var errs error
	for _, tr := range trials {
		if tr.Err != nil {
			errs = multierr.Append(errs, tr.Err)
			continue
		}
		if tr.Value < out.Value {
			out.Value = tr.Value
			out.Best = tr.Params
		}
	}
	if out.Best == nil {
		return out, multierr.Append(ErrNoResult, errs)
	}
	return out, nil
}

func runTrial(ctx context.Context, build BuildFunc, params map[string]float64, metricName string) Trial {
	tr := Trial{Params: params, Value: math.NaN()}

	exp, err := build(params)
	if err != nil {
		tr.Err = fmt.Errorf("optim: build %v: %w", params, err)
		return tr
	}

	result, err := exp.Run(ctx)
	if err != nil {
		tr.Err = fmt.Errorf("optim: run %v: %w", params, err)
		return tr
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		tr.Err = fmt.Errorf("%w: %s", ErrMetric, metricName)
		return tr
	}
	if math.IsNaN(val) {
		tr.Err = fmt.Errorf("optim: %s is NaN for %v", metricName, params)
		return tr
	}
	tr.Value = val
	return tr
}

// Ranked returns the successful trials, best first.
func (o *Outcome) Ranked() []Trial {
	out := make([]Trial, 0, len(o.Trials))
	for _, tr := range o.Trials {
		if tr.Err == nil {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
