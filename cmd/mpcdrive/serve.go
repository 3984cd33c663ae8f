package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/mpcdrive/internal/mpc"
	"github.com/san-kum/mpcdrive/internal/pilot"
	"github.com/san-kum/mpcdrive/internal/solver"
	"github.com/san-kum/mpcdrive/internal/telemetry"
)

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := solver.New(cfg.Solver.Name)
	if err != nil {
		return err
	}
	ctrl, err := mpc.New(cfg.MPCHorizon(), cfg.MPCWeights(), s, logger)
	if err != nil {
		return err
	}
	ctrl = ctrl.WithOptions(cfg.SolverOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := telemetry.NewServer(cfg.Server.Addr, pilot.New(ctrl, logger), cfg.Server.Latency, logger)
	logger.Infow("server starting",
		"addr", cfg.Server.Addr,
		"solver", s.Name(),
		"ref_speed", cfg.Horizon.RefSpeed,
		"latency", cfg.Server.Latency)
	return srv.ListenAndServe(ctx)
}
