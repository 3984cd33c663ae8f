package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/mpcdrive/internal/config"
	"github.com/san-kum/mpcdrive/internal/experiment"
	"github.com/san-kum/mpcdrive/internal/optim"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/storage"
	"github.com/san-kum/mpcdrive/internal/viz"
)

func runClosedLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Sim.Track = trackArg(cfg, args)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st := storage.New(cfg.Sim.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ecfg := cfg.Experiment()
	exp := experiment.New(ecfg, nil, logger)
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "running %s on %s...\n", ecfg.Controller, exp.Track().Name)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Track:      exp.Track().Name,
		Seed:       ecfg.Seed,
		Dt:         ecfg.Dt,
		Duration:   ecfg.Duration,
		Latency:    ecfg.Latency,
		Integrator: ecfg.Integrator,
		Controller: ecfg.Controller,
		Params:     ecfg.Params,
	}
	if ecfg.Controller == "mpc" {
		meta.Solver = ecfg.Solver
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}

	if jsonOut {
		meta.ID = runID
		return storage.ExportJSON(os.Stdout, meta, result)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", len(result.States))
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Sim.Track = trackArg(cfg, args)

	exp := experiment.New(cfg.Experiment(), nil, nil)
	if err := exp.Setup(); err != nil {
		return err
	}

	m, err := viz.NewLive(exp)
	if err != nil {
		return err
	}
	defer m.Stop()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.Err()
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.Sim.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRACK\tTIME\tDURATION\tCTRL\tSOLVER\tCTE(RMS)")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%s\t%s\t%.3f\n",
			run.ID,
			run.Track,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Controller,
			run.Solver,
			run.Metrics["cross_track"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.Sim.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(trace.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("track: %s, controller: %s\n", meta.Track, meta.Controller)
	fmt.Printf("samples: %d\n\n", len(trace.Rows))

	driven := reference.Zip(trace.Column("x"), trace.Column("y"))
	if tr, err := experiment.NewRegistry().GetTrack(meta.Track); err == nil {
		fmt.Println(viz.Map(70, 20, true, tr.Waypoints, driven))
	} else {
		fmt.Println(viz.Map(70, 20, false, driven))
	}

	for _, col := range []struct{ name, caption string }{
		{"v", "speed"},
		{"steer", "steering (rad)"},
		{"throttle", "throttle"},
	} {
		if chart := viz.Chart(col.caption, 80, 8, trace.Column(col.name)); chart != "" {
			fmt.Println(chart)
			fmt.Println()
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	meta, err := storage.New(cfg.Sim.DataDir).Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// parseGrid reads name=v1,v2,... specs in flag order.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, entry := range specs {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad --param %q, want name=v1,v2", entry)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value in --param %q: %w", entry, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Sim.Track = trackArg(cfg, args)

	names, ranges, err := parseGrid(tuneParams)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	base := cfg.Experiment()
	registry := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		ecfg, err := base.WithParams(params)
		if err != nil {
			return nil, err
		}
		exp := experiment.New(ecfg, registry, logger.With("trial", params))
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		return exp, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	g.Workers = workers

	fmt.Fprintf(os.Stderr, "searching %d combinations on %s...\n", len(g.Combinations()), cfg.Sim.Track)
	out, err := g.Search(ctx, build, metricName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for i, tr := range out.Ranked() {
		vals := make([]string, len(names))
		for j, n := range names {
			vals[j] = strconv.FormatFloat(tr.Params[n], 'g', -1, 64)
		}
		fmt.Fprintf(w, "%d\t%s\t%.6f\n", i+1, strings.Join(vals, "\t"), tr.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	failed := len(out.Trials) - len(out.Ranked())
	if failed > 0 {
		fmt.Printf("\n%d trials failed\n", failed)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tREF SPEED\tSTEPS\tDELAY\tSTEER RATE\tLATENCY")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%.0f\t%d\t%d\t%.0f\t%v\n",
			name, p.Horizon.RefSpeed, p.Horizon.Steps, p.Horizon.DelaySteps, p.Weights.SteerRate, p.Server.Latency)
	}
	return w.Flush()
}
