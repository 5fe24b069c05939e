package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootConfigPath string
	rootLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "genset-sim",
	Short: "Marine diesel generator simulator",
	Long: "genset-sim simulates a marine diesel generator set: engine start and stop " +
		"sequencing, load droop, auxiliary sensors and alarms, controllable over TCP, " +
		"HTTP or an interactive console.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to generator configuration YAML (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(validateCmd)
}
