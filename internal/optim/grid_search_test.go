package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/mpcdrive/internal/experiment"
)

func pidBuilder(t *testing.T) BuildFunc {
	t.Helper()
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := experiment.DefaultConfig()
		cfg.Controller = "pid"
		cfg.Duration = 2
		cfg.Horizon.RefSpeed = 20
		cfg, err := cfg.WithParams(params)
		if err != nil {
			return nil, err
		}
		e := experiment.New(cfg, nil, nil)
		if err := e.Setup(); err != nil {
			return nil, err
		}
		return e, nil
	}
}

func TestCombinations(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	combos := g.Combinations()
	if len(combos) != 6 {
		t.Fatalf("expected 6 combinations, got %d", len(combos))
	}
	if combos[0]["a"] != 1 || combos[0]["b"] != 10 {
		t.Errorf("first = %v", combos[0])
	}
	if combos[1]["a"] != 1 || combos[1]["b"] != 20 {
		t.Errorf("last parameter should vary fastest, second = %v", combos[1])
	}
	if combos[5]["a"] != 2 || combos[5]["b"] != 30 {
		t.Errorf("last = %v", combos[5])
	}
}

func TestSearchFindsMinimum(t *testing.T) {
	for _, workers := range []int{1, 3} {
		g := NewGridSearch([]string{"speed_kp"}, [][]float64{{0.5, 0, 1}})
		g.Workers = workers

		out, err := g.Search(context.Background(), pidBuilder(t), "mean_speed")
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		// no throttle keeps the initial speed, anything else accelerates
		if out.Best["speed_kp"] != 0 {
			t.Errorf("workers=%d: best = %v", workers, out.Best)
		}
		if len(out.Trials) != 3 {
			t.Errorf("expected 3 trials, got %d", len(out.Trials))
		}
		ranked := out.Ranked()
		if ranked[0].Value != out.Value || ranked[2].Params["speed_kp"] != 1 {
			t.Errorf("ranking wrong: %+v", ranked)
		}
	}
}

func TestSearchKeepsFailedTrials(t *testing.T) {
	build := pidBuilder(t)
	g := NewGridSearch([]string{"steer_rate"}, [][]float64{{-1, 100}})

	out, err := g.Search(context.Background(), build, "cross_track")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Trials[0].Err == nil {
		t.Error("negative weight should fail its trial")
	}
	if out.Best["steer_rate"] != 100 {
		t.Errorf("best = %v", out.Best)
	}
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewGridSearch(nil, nil).Search(ctx, pidBuilder(t), "cross_track"); !errors.Is(err, ErrGrid) {
		t.Errorf("expected ErrGrid, got %v", err)
	}
	if _, err := NewGridSearch([]string{"kp"}, [][]float64{{}}).Search(ctx, pidBuilder(t), "cross_track"); !errors.Is(err, ErrGrid) {
		t.Errorf("expected ErrGrid for empty range, got %v", err)
	}
	if _, err := NewGridSearch([]string{"kp", "kd"}, [][]float64{{1}}).Search(ctx, pidBuilder(t), "cross_track"); !errors.Is(err, ErrGrid) {
		t.Errorf("expected ErrGrid for mismatch, got %v", err)
	}

	_, err := NewGridSearch([]string{"kp"}, [][]float64{{0.1}}).Search(ctx, pidBuilder(t), "lap_time")
	if !errors.Is(err, ErrNoResult) || !errors.Is(err, ErrMetric) {
		t.Errorf("expected ErrNoResult and ErrMetric, got %v", err)
	}

	failing := func(map[string]float64) (*experiment.Experiment, error) {
		return nil, errors.New("boom")
	}
	if _, err := NewGridSearch([]string{"kp"}, [][]float64{{1, 2}}).Search(ctx, failing, "cross_track"); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGridSearch([]string{"kp"}, [][]float64{{0.1, 0.2}}).Search(ctx, pidBuilder(t), "cross_track")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
