package experiment

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/mpcdrive/internal/controllers"
	"github.com/san-kum/mpcdrive/internal/integrators"
	"github.com/san-kum/mpcdrive/internal/metrics"
	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/pilot"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/track"
)

var ErrUnknown = errors.New("experiment: unknown component")

// Env is what a controller factory gets to build from.
type Env struct {
	Track   *track.Track
	Horizon mpc.Horizon
	Weights mpc.Weights
	Solver  string
	// Options tune the solver; a zero budget falls back to the horizon's.
	Options solver.Options
	Params  map[string]float64
	Logger  *zap.SugaredLogger
}

func (e Env) param(name string, fallback float64) float64 {
	if v, ok := e.Params[name]; ok {
		return v
	}
	return fallback
}

type ControllerFactory func(env Env) (sim.Controller, error)

type Registry struct {
	tracks      map[string]func() *track.Track
	integrators map[string]func() sim.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		tracks:      make(map[string]func() *track.Track),
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	for name, tr := range track.Builtin() {
		tr := tr
		r.tracks[name] = func() *track.Track { return tr }
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(env Env) (sim.Controller, error) {
		return controllers.NewNone(2), nil
	}
	r.controllers["pid"] = func(env Env) (sim.Controller, error) {
		steer := controllers.NewPID(env.param("kp", 0.2), env.param("ki", 0), env.param("kd", 0.5))
		throttle := controllers.NewPID(env.param("speed_kp", 0.5), 0, 0)
		return controllers.NewTracker(env.Track, steer, throttle, env.Horizon.RefSpeed, env.Horizon.SteerLimit), nil
	}
	r.controllers["lqr"] = func(env Env) (sim.Controller, error) {
		return controllers.NewLateral(env.Track,
			env.param("k_cte", 0.1), env.param("k_epsi", 1.0), env.param("k_speed", 0.3),
			env.Horizon.RefSpeed, env.Horizon.SteerLimit), nil
	}
	r.controllers["mpc"] = func(env Env) (sim.Controller, error) {
		s, err := solver.New(env.Solver)
		if err != nil {
			return nil, err
		}
		ctrl, err := mpc.New(env.Horizon, env.Weights, s, env.Logger)
		if err != nil {
			return nil, err
		}
		if env.Options != (solver.Options{}) {
			opts := env.Options
			if opts.Budget <= 0 {
				opts.Budget = env.Horizon.Budget
			}
			ctrl = ctrl.WithOptions(opts)
		}
		lookahead := int(env.param("lookahead", pilot.DefaultLookahead))
		return pilot.NewDriver(pilot.New(ctrl, env.Logger), env.Track, lookahead), nil
	}

	return r
}

// RegisterTrack adds or replaces a named track.
func (r *Registry) RegisterTrack(tr *track.Track) {
	r.tracks[tr.Name] = func() *track.Track { return tr }
}

// GetTrack resolves a builtin name first, then treats name as a CSV path.
func (r *Registry) GetTrack(name string) (*track.Track, error) {
	if fn, ok := r.tracks[name]; ok {
		return fn(), nil
	}
	tr, err := track.Load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: track %s: %v", ErrUnknown, name, err)
	}
	return tr, nil
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %s", ErrUnknown, name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, env Env) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: controller %s", ErrUnknown, name)
	}
	return fn(env)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListTracks() []string      { return sortedKeys(r.tracks) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func (r *Registry) DefaultMetrics(tr *track.Track) []sim.Metric {
	return metrics.Standard(tr)
}
