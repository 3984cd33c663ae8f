// Package config reads and writes the yaml configuration shared by every
// mpcdrive command.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mpcdrive/internal/experiment"
	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/solver"
)

const (
	DefaultAddr      = ":4567"
	DefaultLatency   = 100 * time.Millisecond
	DefaultLookahead = 8
	DefaultDataDir   = ".mpcdrive/runs"
	DefaultLogLevel  = "info"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Horizon  HorizonConfig `yaml:"horizon"`
	Weights  WeightsConfig `yaml:"weights"`
	Solver   SolverConfig  `yaml:"solver"`
	Server   ServerConfig  `yaml:"server"`
	Sim      SimConfig     `yaml:"sim"`
}

type HorizonConfig struct {
	Steps      int           `yaml:"steps"`
	Dt         float64       `yaml:"dt"`
	RefSpeed   float64       `yaml:"ref_speed"`
	Lf         float64       `yaml:"lf"`
	DelaySteps int           `yaml:"delay_steps"`
	SteerLimit float64       `yaml:"steer_limit"`
	AccelLimit float64       `yaml:"accel_limit"`
	Budget     time.Duration `yaml:"budget"`
}

type WeightsConfig struct {
	CTE        float64 `yaml:"cte"`
	EPsi       float64 `yaml:"epsi"`
	Speed      float64 `yaml:"speed"`
	Steer      float64 `yaml:"steer"`
	Accel      float64 `yaml:"accel"`
	SteerSpeed float64 `yaml:"steer_speed"`
	SteerRate  float64 `yaml:"steer_rate"`
	AccelRate  float64 `yaml:"accel_rate"`
}

type SolverConfig struct {
	Name                string  `yaml:"name"`
	MaxIterations       int     `yaml:"max_iterations"`
	Tolerance           float64 `yaml:"tolerance"`
	ConstraintTolerance float64 `yaml:"constraint_tolerance"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Latency is slept before every reply to mimic actuation delay.
	Latency   time.Duration `yaml:"latency"`
	Lookahead int           `yaml:"lookahead"`
}

type SimConfig struct {
	Track      string  `yaml:"track"`
	Controller string  `yaml:"controller"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Latency    float64 `yaml:"latency"`
	InitSpeed  float64 `yaml:"init_speed"`
	Seed       int64   `yaml:"seed"`
	Jitter     float64 `yaml:"jitter"`
	DataDir    string  `yaml:"data_dir"`
}

func DefaultConfig() *Config {
	h := mpc.DefaultHorizon()
	w := mpc.DefaultWeights()
	o := solver.DefaultOptions()
	e := experiment.DefaultConfig()

	return &Config{
		LogLevel: DefaultLogLevel,
		Horizon: HorizonConfig{
			Steps:      h.Steps,
			Dt:         h.Dt,
			RefSpeed:   h.RefSpeed,
			Lf:         h.Lf,
			DelaySteps: h.DelaySteps,
			SteerLimit: h.SteerLimit,
			AccelLimit: h.AccelLimit,
			Budget:     h.Budget,
		},
		Weights: WeightsConfig{
			CTE:        w.CTE,
			EPsi:       w.EPsi,
			Speed:      w.Speed,
			Steer:      w.Steer,
			Accel:      w.Accel,
			SteerSpeed: w.SteerSpeed,
			SteerRate:  w.SteerRate,
			AccelRate:  w.AccelRate,
		},
		Solver: SolverConfig{
			Name:                e.Solver,
			MaxIterations:       o.MaxIterations,
			Tolerance:           o.Tolerance,
			ConstraintTolerance: o.ConstraintTolerance,
		},
		Server: ServerConfig{
			Addr:      DefaultAddr,
			Latency:   DefaultLatency,
			Lookahead: DefaultLookahead,
		},
		Sim: SimConfig{
			Track:      e.Track,
			Controller: e.Controller,
			Integrator: e.Integrator,
			Dt:         e.Dt,
			Duration:   e.Duration,
			Latency:    e.Latency,
			InitSpeed:  e.InitSpeed,
			DataDir:    DefaultDataDir,
		},
	}
}

// Load reads path over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.MPCHorizon().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := solver.New(c.Solver.Name); err != nil && !errors.Is(err, solver.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Server.Latency < 0 || c.Sim.Latency < 0 {
		return fmt.Errorf("%w: negative latency", ErrInvalid)
	}
	if c.Sim.Dt <= 0 || c.Sim.Duration <= 0 {
		return fmt.Errorf("%w: sim dt and duration must be positive", ErrInvalid)
	}
	return nil
}

func (c *Config) MPCHorizon() mpc.Horizon {
	return mpc.Horizon{
		Steps:      c.Horizon.Steps,
		Dt:         c.Horizon.Dt,
		RefSpeed:   c.Horizon.RefSpeed,
		Lf:         c.Horizon.Lf,
		DelaySteps: c.Horizon.DelaySteps,
		SteerLimit: c.Horizon.SteerLimit,
		AccelLimit: c.Horizon.AccelLimit,
		Budget:     c.Horizon.Budget,
	}
}

func (c *Config) MPCWeights() mpc.Weights {
	return mpc.Weights{
		CTE:        c.Weights.CTE,
		EPsi:       c.Weights.EPsi,
		Speed:      c.Weights.Speed,
		Steer:      c.Weights.Steer,
		Accel:      c.Weights.Accel,
		SteerSpeed: c.Weights.SteerSpeed,
		SteerRate:  c.Weights.SteerRate,
		AccelRate:  c.Weights.AccelRate,
	}
}

// SolverOptions takes the wall-clock budget from the horizon.
func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Budget:              c.Horizon.Budget,
		MaxIterations:       c.Solver.MaxIterations,
		Tolerance:           c.Solver.Tolerance,
		ConstraintTolerance: c.Solver.ConstraintTolerance,
	}
}

func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Track:      c.Sim.Track,
		Integrator: c.Sim.Integrator,
		Controller: c.Sim.Controller,
		Solver:     c.Solver.Name,
		Options:    c.SolverOptions(),
		Horizon:    c.MPCHorizon(),
		Weights:    c.MPCWeights(),
		Dt:         c.Sim.Dt,
		Duration:   c.Sim.Duration,
		Latency:    c.Sim.Latency,
		InitSpeed:  c.Sim.InitSpeed,
		Seed:       c.Sim.Seed,
		Jitter:     c.Sim.Jitter,
		Params:     map[string]float64{"lookahead": float64(c.Server.Lookahead)},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}
