package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Scenario is one independent closed-loop run. Each scenario must own its
// controller; controllers are not shared between goroutines.
type Scenario struct {
	Name string
	Sim  *Simulator
	X0   State
	Cfg  Config
}

type Ensemble struct {
	scenarios []Scenario
}

func NewEnsemble(scenarios ...Scenario) *Ensemble {
	return &Ensemble{scenarios: scenarios}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.scenarios))
	errs := make([]error, len(e.scenarios))

	var wg sync.WaitGroup
	for i := range e.scenarios {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sc := e.scenarios[idx]
			results[idx], errs[idx] = sc.Sim.Run(ctx, sc.X0, sc.Cfg)
		}(i)
	}

	wg.Wait()

	// Results of scenarios that succeeded are kept even when others fail.
	var err error
	for i, runErr := range errs {
		if runErr == nil {
			continue
		}
		name := e.scenarios[i].Name
		if name == "" {
			name = fmt.Sprint(i)
		}
		err = multierr.Append(err, fmt.Errorf("scenario %s: %w", name, runErr))
	}
	return results, err
}
