package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/config"
	"github.com/tslnc04/agent-sim/internal/sim"
)

var (
	cfgFile string
	verbose bool
	steps   int
	seed    int64
	addr    string
	svgOut  string
	grid    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "agentsim",
		Short:        "agentsim - spatial epidemic simulation over a quadtree index",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every step at debug level")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "RNG seed, overrides sim.seed (0 keeps the configured value)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured number of steps and write the outputs",
		RunE:  runRun,
	}
	runCmd.Flags().IntVar(&steps, "steps", -1, "Number of steps, overrides sim.steps")
	runCmd.Flags().BoolVar(&grid, "grid", false, "Print the text grid after every step, spaced by sim.interval")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Step on an interval while serving the REST API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "REST listen address, overrides rest.addr")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Write an SVG of the initial world",
		RunE:  runRender,
	}
	renderCmd.Flags().StringVarP(&svgOut, "out", "o", "", "SVG path, overrides output.svg (default: world.svg)")

	rootCmd.AddCommand(runCmd, serveCmd, renderCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the controller.
func setup() (*sim.Controller, *config.Config, *zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger init: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load: %w", err)
	}
	if seed != 0 {
		cfg.Sim.Seed = seed
	}
	if grid {
		cfg.Output.Grid = true
	}

	ctrl, err := sim.NewController(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctrl, cfg, logger, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctrl, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer ctrl.Close()

	n := cfg.Sim.Steps
	if steps >= 0 {
		n = steps
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := ctrl.Run(ctx, n); err != nil {
		return err
	}
	return ctrl.WriteOutputs()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctrl, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer ctrl.Close()

	listen := cfg.Rest.Addr
	if addr != "" {
		listen = addr
	}
	if err := ctrl.Serve(context.Background(), listen, cfg.Sim.Interval); err != nil {
		return err
	}
	return ctrl.WriteOutputs()
}

func runRender(cmd *cobra.Command, args []string) error {
	ctrl, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer ctrl.Close()

	path := cfg.Output.SVG
	if svgOut != "" {
		path = svgOut
	}
	if path == "" {
		path = "world.svg"
	}
	return ctrl.WriteSVG(path)
}
