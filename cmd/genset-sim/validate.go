package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"genset-sim/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate a configuration file and print the effective settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := rootConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("config file required")
		}
		cfg, err := config.ValidateFile(path)
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return err
		}
		for _, w := range cfg.ToleranceWarnings() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
