package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"genset-sim/internal/admin"
	"genset-sim/internal/command"
	"genset-sim/internal/config"
	"genset-sim/internal/logging"
	"genset-sim/internal/scenario"
	"genset-sim/internal/sim"
)

var (
	simPrintOnly bool
	simFormat    string
	simTick      time.Duration
	simTCPAddr   string
	simAdminAddr string
	simSeed      uint64
	simScenario  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time generator simulator",
	Long: "simulate ticks the generator in real time, prints its status feed and serves " +
		"the TCP command protocol and the admin HTTP panel.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, os.LookupEnv)
		if err != nil {
			return err
		}
		applySimulateFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err := newLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}
		defer log.Sync()
		logWarnings(cfg, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log.Named("sim"))

		eng := newEngine(cfg, log)
		handler := command.NewHandler(cfg.UnitID, eng, log.Named("command"))

		var hub *admin.Hub
		serveAdmin := !simPrintOnly && cfg.Server.AdminAddr != ""
		if serveAdmin {
			hub = admin.NewHub(log.Named("ws"))
		}
		writer, err := newWriters(cfg, simFormat, simPrintOnly, hub)
		if err != nil {
			return err
		}
		if simScenario != "" {
			sc, err := scenario.Lookup(simScenario)
			if err != nil {
				return err
			}
			writer.Add(scenario.NewRunner(sc, handler, log.Named("scenario")))
			log.Infow("scenario loaded", "scenario", sc.Name, "phases", len(sc.Phases))
		}
		simulator := sim.NewSimulator(cfg.UnitID, eng, writer, cfg.Simulation.TickInterval)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			simulator.Run(gctx)
			return nil
		})
		if !simPrintOnly {
			tcp := command.NewServer(cfg.Server.TCPAddr, handler, cfg.Server.IdleTimeout, log.Named("tcp"))
			g.Go(func() error { return tcp.ListenAndServe(gctx) })
		}
		if serveAdmin {
			srv := admin.NewServer(handler, simulator, hub, log.Named("admin"))
			g.Go(func() error {
				hub.Run(gctx)
				return nil
			})
			g.Go(func() error {
				writer.SetAdminStatus(true)
				defer writer.SetAdminStatus(false)
				return srv.ListenAndServe(gctx, cfg.Server.AdminAddr)
			})
		}

		err = g.Wait()
		log.Infow("generator simulation stopped", "unit_id", cfg.UnitID, "ticks", simulator.State().Ticks)
		return err
	},
}

// applySimulateFlags lets explicitly set flags win over file and environment.
func applySimulateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("tick") {
		cfg.Simulation.TickInterval = simTick
	}
	if flags.Changed("tcp-addr") {
		cfg.Server.TCPAddr = simTCPAddr
	}
	if flags.Changed("admin-addr") {
		cfg.Server.AdminAddr = simAdminAddr
	}
	if flags.Changed("seed") {
		cfg.Sensors.Seed = simSeed
	}
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Only print the JSON status feed, without TCP or admin servers")
	simulateCmd.Flags().StringVar(&simFormat, "format", formatColor, "Stdout feed format (color, json, none)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", config.DefaultTickInterval, "Simulation tick interval (e.g. 100ms, 1s)")
	simulateCmd.Flags().StringVar(&simTCPAddr, "tcp-addr", config.DefaultTCPAddr, "Command protocol listen address")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", config.DefaultAdminAddr, "Admin HTTP listen address (empty disables)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Sensor noise seed (0 picks a random seed)")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Training drill to play: built-in name (fuel-starvation, oil-pressure-loss, overload, overspeed) or YAML file")
}
