package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/infrasync/driftguard/config"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "driftguard",
		Short: "Infrastructure drift evaluation engine",
		Long: `DriftGuard - Infrastructure Drift Evaluation Engine

DriftGuard reacts to cloud change events by running a speculative
Terraform Cloud plan against the affected workspace, deciding whether
the change drifted from declared infrastructure, notifying Slack and
recording the outcome in a durable history table.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`DriftGuard {{.Version}} - Infrastructure Drift Evaluation Engine
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

// loadConfig reads the config file and sets the global log level from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	return cfg, nil
}
