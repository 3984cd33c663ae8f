package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/pilot"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/track"
)

func shortConfig(controller string) Config {
	cfg := DefaultConfig()
	cfg.Controller = controller
	cfg.Duration = 2
	cfg.Horizon.RefSpeed = 20
	cfg.Horizon.Budget = 5 * time.Second
	return cfg
}

func TestRegistryLists(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"tracks", r.ListTracks(), []string{"figure8", "oval", "sine"}},
		{"integrators", r.ListIntegrators(), []string{"euler", "rk4"}},
		{"controllers", r.ListControllers(), []string{"lqr", "mpc", "none", "pid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("got %v, want %v", tt.got, tt.want)
			}
			for i := range tt.want {
				if tt.got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", tt.got, tt.want)
				}
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()

	if _, err := r.GetIntegrator("verlet"); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
	if _, err := r.GetController("bangbang", Env{}); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
	if _, err := r.GetTrack(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestRegistryTrackFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.csv")
	data := "# square\n0,0\n10,0\n10,10\n0,10\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := NewRegistry().GetTrack(path)
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if tr.Len() != 4 {
		t.Errorf("expected 4 waypoints, got %d", tr.Len())
	}
}

func TestRegistryMPCController(t *testing.T) {
	r := NewRegistry()
	env := Env{
		Track:   track.Oval(300, 120, 15),
		Horizon: mpc.DefaultHorizon(),
		Weights: mpc.DefaultWeights(),
	}

	c, err := r.GetController("mpc", env)
	if err != nil {
		t.Fatalf("mpc controller: %v", err)
	}
	if _, ok := c.(*pilot.Driver); !ok {
		t.Errorf("expected *pilot.Driver, got %T", c)
	}

	env.Solver = "bogus"
	if _, err := r.GetController("mpc", env); !errors.Is(err, solver.ErrUnknown) {
		t.Errorf("expected solver.ErrUnknown, got %v", err)
	}
}

func TestRunNotSetup(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	if _, err := e.Run(context.Background()); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
	if _, err := e.Scenario("x"); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
}

func TestSetupRejectsBadHorizon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizon.Steps = 1
	if err := New(cfg, nil, nil).Setup(); !errors.Is(err, mpc.ErrHorizon) {
		t.Errorf("expected ErrHorizon, got %v", err)
	}
}

func TestInitialStateJitter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = 1.5
	cfg.Seed = 7

	a := New(cfg, nil, nil)
	if err := a.Setup(); err != nil {
		t.Fatal(err)
	}
	b := New(cfg, nil, nil)
	if err := b.Setup(); err != nil {
		t.Fatal(err)
	}

	xa, xb := a.InitialState(), b.InitialState()
	for i := range xa {
		if xa[i] != xb[i] {
			t.Fatalf("same seed gave different starts: %v vs %v", xa, xb)
		}
	}
	if d := a.Track().Distance(xa[0], xa[1]); d > cfg.Jitter+1e-9 {
		t.Errorf("start %.3f m off track, jitter is %.1f", d, cfg.Jitter)
	}
	if xa[3] != cfg.InitSpeed {
		t.Errorf("speed = %v, want %v", xa[3], cfg.InitSpeed)
	}
}

func TestRunBaselines(t *testing.T) {
	for _, name := range []string{"none", "pid", "lqr"} {
		t.Run(name, func(t *testing.T) {
			e := New(shortConfig(name), nil, nil)
			if err := e.Setup(); err != nil {
				t.Fatalf("setup: %v", err)
			}
			res, err := e.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, m := range []string{"cross_track", "max_cross_track", "mean_speed", "control_effort", "steer_jerk"} {
				v, ok := res.Metrics[m]
				if !ok || math.IsNaN(v) {
					t.Errorf("metric %s missing or NaN", m)
				}
			}
		})
	}
}

func TestRunMPC(t *testing.T) {
	if testing.Short() {
		t.Skip("closed loop run")
	}

	e := New(shortConfig("mpc"), nil, nil)
	if err := e.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Metrics["max_cross_track"] > 2 {
		t.Errorf("max cross track %.2f m", res.Metrics["max_cross_track"])
	}
	if d := e.Controller().(*pilot.Driver); d.Failures() != 0 {
		t.Errorf("%d failed cycles", d.Failures())
	}
}

func TestScenarioEnsemble(t *testing.T) {
	var scenarios []sim.Scenario
	for _, name := range []string{"pid", "lqr"} {
		e := New(shortConfig(name), nil, nil)
		if err := e.Setup(); err != nil {
			t.Fatal(err)
		}
		sc, err := e.Scenario(name)
		if err != nil {
			t.Fatal(err)
		}
		scenarios = append(scenarios, sc)
	}

	results, err := sim.NewEnsemble(scenarios...).Run(context.Background())
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestWithParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params = map[string]float64{"kp": 1}

	out, err := cfg.WithParams(map[string]float64{"cte": 10, "steer_rate": 5, "kd": 2})
	if err != nil {
		t.Fatal(err)
	}
	if out.Weights.CTE != 10 || out.Weights.SteerRate != 5 {
		t.Errorf("weights not applied: %+v", out.Weights)
	}
	if out.Params["kp"] != 1 || out.Params["kd"] != 2 {
		t.Errorf("params not merged: %v", out.Params)
	}
	if _, ok := cfg.Params["kd"]; ok {
		t.Error("WithParams mutated the receiver")
	}

	if _, err := cfg.WithParams(map[string]float64{"cte": -1}); !errors.Is(err, mpc.ErrWeight) {
		t.Errorf("expected ErrWeight, got %v", err)
	}
}
