// Package experiment assembles closed-loop runs of a controller around the
// bicycle plant on a named track.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/mpcdrive/internal/logging"
	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/track"
	"github.com/san-kum/mpcdrive/internal/vehicle"
)

var ErrNotSetup = errors.New("experiment: not set up")

type Config struct {
	Track      string
	Integrator string
	Controller string
	Solver     string
	Options    solver.Options
	Horizon    mpc.Horizon
	Weights    mpc.Weights
	Dt         float64
	Duration   float64
	Latency    float64
	// InitSpeed is the plant speed at t=0 in m/s.
	InitSpeed float64
	// Seed drives the start offset jitter. Zero jitter means a
	// deterministic start on the first waypoint.
	Seed   int64
	Jitter float64
	Params map[string]float64
}

func DefaultConfig() Config {
	simCfg := sim.DefaultConfig()
	return Config{
		Track:      "oval",
		Integrator: "rk4",
		Controller: "mpc",
		Solver:     "alm",
		Horizon:    mpc.DefaultHorizon(),
		Weights:    mpc.DefaultWeights(),
		Dt:         simCfg.Dt,
		Duration:   simCfg.Duration,
		Latency:    simCfg.Latency,
		InitSpeed:  10,
	}
}

type Experiment struct {
	cfg        Config
	registry   *Registry
	logger     *zap.SugaredLogger
	randSource *rand.Rand

	track      *track.Track
	controller sim.Controller
	simulator  *sim.Simulator
}

func New(cfg Config, registry *Registry, logger *zap.SugaredLogger) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Experiment{
		cfg:        cfg,
		registry:   registry,
		logger:     logger,
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Setup resolves every named component and wires the simulator. Extra
// metrics are recorded alongside the registry defaults.
func (e *Experiment) Setup(extra ...sim.Metric) error {
	tr, err := e.registry.GetTrack(e.cfg.Track)
	if err != nil {
		return err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	if err := e.cfg.Horizon.Validate(); err != nil {
		return err
	}

	ctrl, err := e.registry.GetController(e.cfg.Controller, Env{
		Track:   tr,
		Horizon: e.cfg.Horizon,
		Weights: e.cfg.Weights,
		Solver:  e.cfg.Solver,
		Options: e.cfg.Options,
		Params:  e.cfg.Params,
		Logger:  e.logger.With("track", tr.Name, "controller", e.cfg.Controller),
	})
	if err != nil {
		return fmt.Errorf("experiment: controller %s: %w", e.cfg.Controller, err)
	}

	plant := vehicle.NewBicycle()
	plant.SteerLimit = e.cfg.Horizon.SteerLimit
	plant.AccelLimit = e.cfg.Horizon.AccelLimit
	plant.Lf = e.cfg.Horizon.Lf

	e.track = tr
	e.controller = ctrl
	e.simulator = sim.New(plant, integ, ctrl)
	for _, m := range e.registry.DefaultMetrics(tr) {
		e.simulator.AddMetric(m)
	}
	for _, m := range extra {
		e.simulator.AddMetric(m)
	}
	return nil
}

// InitialState places the car on the first waypoint facing the second,
// shifted sideways by up to Jitter metres.
func (e *Experiment) InitialState() sim.State {
	start := e.track.Start()
	offset := 0.0
	if e.cfg.Jitter > 0 {
		offset = (2*e.randSource.Float64() - 1) * e.cfg.Jitter
	}
	sin, cos := math.Sincos(start.Psi)
	return sim.State{
		start.X - offset*sin,
		start.Y + offset*cos,
		start.Psi,
		e.cfg.InitSpeed,
	}
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Latency:       e.cfg.Latency,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}
	e.logger.Infow("run started",
		"track", e.track.Name, "controller", e.cfg.Controller, "solver", e.cfg.Solver,
		"duration", e.cfg.Duration, "latency", e.cfg.Latency)

	res, err := e.simulator.Run(ctx, e.InitialState(), e.SimConfig())
	if err != nil {
		return res, err
	}
	e.logger.Infow("run finished", "steps", res.StepsTaken, "metrics", res.Metrics)
	return res, nil
}

// Scenario packages the experiment for a sim.Ensemble. Each scenario owns
// its controller, so experiments must be set up separately.
func (e *Experiment) Scenario(name string) (sim.Scenario, error) {
	if e.simulator == nil {
		return sim.Scenario{}, ErrNotSetup
	}
	return sim.Scenario{
		Name: name,
		Sim:  e.simulator,
		X0:   e.InitialState(),
		Cfg:  e.SimConfig(),
	}, nil
}

func (e *Experiment) Config() Config { return e.cfg }

// Track returns the resolved track; nil before Setup.
func (e *Experiment) Track() *track.Track { return e.track }

// Controller returns the wired controller; nil before Setup.
func (e *Experiment) Controller() sim.Controller { return e.controller }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// WithParams returns a copy of c with params applied. Names from
// mpc.WeightNames set cost weights; anything else goes to the controller
// factory through Params.
func (c Config) WithParams(params map[string]float64) (Config, error) {
	weights := make(map[string]bool)
	for _, name := range mpc.WeightNames() {
		weights[name] = true
	}

	out := c
	out.Params = make(map[string]float64, len(c.Params)+len(params))
	for k, v := range c.Params {
		out.Params[k] = v
	}
	for k, v := range params {
		if !weights[k] {
			out.Params[k] = v
			continue
		}
		w, err := out.Weights.With(k, v)
		if err != nil {
			return c, err
		}
		out.Weights = w
	}
	return out, nil
}
