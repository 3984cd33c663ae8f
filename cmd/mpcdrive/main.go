package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/mpcdrive/internal/config"
	"github.com/san-kum/mpcdrive/internal/logging"
	"github.com/san-kum/mpcdrive/internal/solver"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	// horizon and solver overrides, shared by every command that solves
	refSpeed   float64
	steps      int
	delaySteps int
	budget     time.Duration
	solverName string

	// server
	addr      string
	latency   time.Duration
	lookahead int

	// closed loop
	controller string
	integrator string
	dt         float64
	duration   float64
	simLatency float64
	initSpeed  float64
	seed       int64
	jitter     float64
	jsonOut    bool

	// one-shot solve
	speed  float64
	cte    float64
	epsi   float64
	coeffs []float64

	// tuning
	tuneParams []string
	metricName string
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mpcdrive",
		Short:         "model predictive path tracking for a kinematic car",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", "", "run data directory (default from config)")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.Float64Var(&refSpeed, "ref-speed", 50, "reference speed")
	pf.IntVar(&steps, "steps", 20, "horizon length in timesteps")
	pf.IntVar(&delaySteps, "delay-steps", 1, "actuation latency in timesteps")
	pf.DurationVar(&budget, "budget", 500*time.Millisecond, "wall-clock limit per solve")
	pf.StringVar(&solverName, "solver", "alm", fmt.Sprintf("solver backend %v", solver.Names()))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "drive the simulator over its websocket telemetry link",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().DurationVar(&latency, "latency", config.DefaultLatency, "artificial actuation latency")
	serveCmd.Flags().IntVar(&lookahead, "lookahead", config.DefaultLookahead, "waypoints per fit (closed loop only)")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve one control cycle and print the plan",
		Args:  cobra.NoArgs,
		RunE:  solveOnce,
	}
	solveCmd.Flags().Float64Var(&speed, "speed", 40, "current speed")
	solveCmd.Flags().Float64Var(&cte, "cte", 0, "cross-track error (default from coefficients)")
	solveCmd.Flags().Float64Var(&epsi, "epsi", 0, "heading error (default from coefficients)")
	solveCmd.Flags().Float64SliceVar(&coeffs, "coeffs", []float64{1, 0.05, 0, 0}, "reference cubic, ascending powers")
	solveCmd.Flags().BoolVar(&jsonOut, "json", false, "print the flat result vector as JSON")

	runCmd := &cobra.Command{
		Use:   "run [track]",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runClosedLoop,
	}
	addLoopFlags(runCmd)
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "also write the full run as JSON to stdout")

	liveCmd := &cobra.Command{
		Use:   "live [track]",
		Short: "run a closed-loop simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addLoopFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [track]",
		Short: "grid search over parameters minimising a run metric",
		Long: "Each --param is name=v1,v2,... where name is a cost weight " +
			"(cte, epsi, speed, steer, accel, steer_speed, steer_rate, accel_rate) " +
			"or a controller parameter such as kp or lookahead.",
		Args: cobra.MaximumNArgs(1),
		RunE: tune,
	}
	addLoopFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "parameter grid, name=v1,v2,...")
	tuneCmd.Flags().StringVar(&metricName, "metric", "cross_track", "metric to minimise")
	tuneCmd.Flags().IntVar(&workers, "workers", 1, "trials run at once")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "compare sparse derivatives with finite differences and dual numbers",
		Args:  cobra.NoArgs,
		RunE:  checkDerivatives,
	}
	checkCmd.Flags().Float64SliceVar(&coeffs, "coeffs", []float64{0.4, 0.2, -0.01, 0.002}, "reference cubic, ascending powers")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(serveCmd, solveCmd, runCmd, liveCmd, listCmd, plotCmd, exportCmd, tuneCmd, checkCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&controller, "controller", "mpc", "controller: mpc, pid, lqr or none")
	f.StringVar(&integrator, "integrator", "rk4", "plant integrator")
	f.Float64Var(&dt, "dt", 0.1, "simulation timestep")
	f.Float64Var(&duration, "time", 30, "duration")
	f.Float64Var(&simLatency, "latency", 0.1, "actuation latency in seconds")
	f.Float64Var(&initSpeed, "init-speed", 10, "initial speed")
	f.Int64Var(&seed, "seed", 0, "random seed for the start offset")
	f.Float64Var(&jitter, "jitter", 0, "maximum random start offset in metres")
	f.IntVar(&lookahead, "lookahead", config.DefaultLookahead, "waypoints per fit")
}

// loadConfig resolves preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("data") {
		cfg.Sim.DataDir = dataDir
	}
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if changed("ref-speed") {
		cfg.Horizon.RefSpeed = refSpeed
	}
	if changed("steps") {
		cfg.Horizon.Steps = steps
	}
	if changed("delay-steps") {
		cfg.Horizon.DelaySteps = delaySteps
	}
	if changed("budget") {
		cfg.Horizon.Budget = budget
	}
	if changed("solver") {
		cfg.Solver.Name = solverName
	}
	if changed("addr") {
		cfg.Server.Addr = addr
	}
	if changed("latency") {
		if cmd.Name() == "serve" {
			cfg.Server.Latency = latency
		} else {
			cfg.Sim.Latency = simLatency
		}
	}
	if changed("lookahead") {
		cfg.Server.Lookahead = lookahead
	}
	if changed("controller") {
		cfg.Sim.Controller = controller
	}
	if changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if changed("dt") {
		cfg.Sim.Dt = dt
	}
	if changed("time") {
		cfg.Sim.Duration = duration
	}
	if changed("init-speed") {
		cfg.Sim.InitSpeed = initSpeed
	}
	if changed("seed") {
		cfg.Sim.Seed = seed
	}
	if changed("jitter") {
		cfg.Sim.Jitter = jitter
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	return logging.New("mpcdrive", cfg.LogLevel)
}

func trackArg(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Sim.Track
}
