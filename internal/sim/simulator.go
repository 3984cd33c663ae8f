package sim

import (
	"context"
	"errors"
	"fmt"
)

// Simulator closes the loop between a controller and a plant. Commands reach
// the plant through a delay line, so the controller always acts on stale
// actuation.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Steps is the number of fixed steps that cover cfg.Duration.
func (cfg Config) Steps() int {
	return int(cfg.Duration/cfg.Dt + 0.5)
}

// Run drives the plant for cfg.Duration. Controls[i] is the command that
// acted on the plant between Times[i] and Times[i+1], which lags the
// controller's output by cfg.Latency. A non-finite state ends the run early
// and is reported in Result.Errors.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}
	result.States = append(result.States, x0.Clone())
	result.Times = append(result.Times, 0)

	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.drive(ctx, x0, cfg,
		func(x State, u Control, t float64) bool {
			for _, m := range s.metrics {
				m.Observe(x, u, t)
			}
			for _, obs := range s.observers {
				obs.OnStep(x, u, t)
			}
			return true
		},
		func(x State, u Control, t float64) {
			result.StepsTaken++
			result.States = append(result.States, x.Clone())
			result.Controls = append(result.Controls, u.Clone())
			result.Times = append(result.Times, t)
		})

	var simErr SimError
	switch {
	case errors.As(err, &simErr):
		result.Errors = append(result.Errors, simErr)
	case err != nil:
		return result, err
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// RunWithCallback steps the loop until the callback returns false or the
// duration elapses. The callback sees each state with the command about to
// act on it.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(State, Control, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	return s.drive(ctx, x0, cfg, callback, func(State, Control, float64) {})
}

// drive is the fixed-step loop shared by Run and RunWithCallback. before
// may stop the loop; after receives each new state.
func (s *Simulator) drive(ctx context.Context, x0 State, cfg Config, before func(State, Control, float64) bool, after func(State, Control, float64)) error {
	x := x0.Clone()
	t := 0.0
	delay := newDelayLine(cfg.Latency, s.dyn.ControlDim())

	for i := 0; i < cfg.Steps(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay.push(t, s.controller.Compute(x, t))
		u := delay.active(t)
		if !before(x, u, t) {
			return nil
		}

		next := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if cfg.ValidateState && !next.IsValid() {
			return SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"}
		}

		x = next
		// multiply rather than accumulate so long runs stay on the grid
		t = float64(i+1) * cfg.Dt
		after(x, u, t)
	}
	return nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Latency < 0 {
		return fmt.Errorf("latency must not be negative, got %f", cfg.Latency)
	}
	return nil
}
