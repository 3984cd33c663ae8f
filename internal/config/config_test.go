package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/solver"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if diff := cmp.Diff(mpc.DefaultHorizon(), cfg.MPCHorizon()); diff != "" {
		t.Errorf("horizon mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(mpc.DefaultWeights(), cfg.MPCWeights()); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(solver.DefaultOptions(), cfg.SolverOptions()); diff != "" {
		t.Errorf("solver options mismatch (-want +got):\n%s", diff)
	}
	if cfg.Server.Addr != ":4567" || cfg.Server.Latency != 100*time.Millisecond {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
}

func TestExperimentConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sim.Track = "sine"
	cfg.Sim.Seed = 3
	cfg.Server.Lookahead = 6

	e := cfg.Experiment()
	if e.Track != "sine" || e.Seed != 3 || e.Solver != "alm" {
		t.Errorf("unexpected experiment config: %+v", e)
	}
	if e.Params["lookahead"] != 6 {
		t.Errorf("lookahead = %v", e.Params["lookahead"])
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpcdrive.yaml")

	cfg := DefaultConfig()
	cfg.Horizon.RefSpeed = 42
	cfg.Horizon.Budget = 250 * time.Millisecond
	cfg.Weights.CTE = 2000
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "horizon:\n  ref_speed: 35\n  budget: 1s\nserver:\n  latency: 0s\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Horizon.RefSpeed != 35 || cfg.Horizon.Budget != time.Second {
		t.Errorf("overrides not applied: %+v", cfg.Horizon)
	}
	if cfg.Server.Latency != 0 {
		t.Errorf("latency = %v", cfg.Server.Latency)
	}
	if cfg.Horizon.Steps != 20 || cfg.Weights.CTE != 1000 {
		t.Error("unset keys should keep defaults")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
	}{
		{"short horizon", "horizon:\n  steps: 2\n"},
		{"unknown solver", "solver:\n  name: ipopt\n"},
		{"negative latency", "sim:\n  latency: -1\n"},
		{"zero duration", "sim:\n  duration: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("no_latency")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Horizon.DelaySteps != 0 || cfg.Server.Latency != 0 || cfg.Sim.Latency != 0 {
		t.Errorf("latency not removed: %+v", cfg)
	}

	cfg.Horizon.RefSpeed = 1
	if GetPreset("no_latency").Horizon.RefSpeed == 1 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	want := []string{"aggressive", "cautious", "default", "no_latency"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("presets mismatch (-want +got):\n%s", diff)
	}

	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
