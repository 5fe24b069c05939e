package main

import (
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"genset-sim/internal/command"
	"genset-sim/internal/logging"
	"genset-sim/internal/sim"
)

var (
	consoleLogFile string
	consoleNoTCP   bool
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Operate the generator from an interactive terminal console",
	Long: "console runs the simulator with a full-screen operator panel. The TCP command " +
		"server keeps running so scripted clients can drive the set while it is watched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(rootConfigPath, os.LookupEnv)
		if err != nil {
			return err
		}

		// The console owns the terminal, so logs go to a file or nowhere.
		var sink io.Writer = io.Discard
		if consoleLogFile != "" {
			f, err := os.OpenFile(filepath.Clean(consoleLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return err
			}
			defer f.Close()
			sink = f
		}
		log, err := newLogger(cfg, sink)
		if err != nil {
			return err
		}
		defer log.Sync()
		logWarnings(cfg, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log.Named("sim"))

		eng := newEngine(cfg, log)
		tui := sim.NewTUIWriter(cfg, eng)
		defer tui.Close()
		writer := sim.NewMultiWriter(tui)
		simulator := sim.NewSimulator(cfg.UnitID, eng, writer, cfg.Simulation.TickInterval)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			simulator.Run(gctx)
			return nil
		})
		if !consoleNoTCP {
			handler := command.NewHandler(cfg.UnitID, eng, log.Named("command"))
			tcp := command.NewServer(cfg.Server.TCPAddr, handler, cfg.Server.IdleTimeout, log.Named("tcp"))
			g.Go(func() error { return tcp.ListenAndServe(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleLogFile, "log-file", "", "Write logs to this file while the console is open")
	consoleCmd.Flags().BoolVar(&consoleNoTCP, "no-tcp", false, "Do not serve the TCP command protocol")
}
