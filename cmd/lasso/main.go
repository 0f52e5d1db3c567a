package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/config"
	"github.com/rangefold/lasso/internal/logging"
)

// appVersion is stamped into --version output.
const appVersion = "0.3.0"

// defaultConfigPath is consulted when --config is not given; a missing
// file there is fine, the built-in defaults apply.
const defaultConfigPath = ".lasso/config.yml"

var (
	cfgFile   string
	debugMode bool
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "lasso",
	Short: "Consolidate free-text review reasons into a versioned taxonomy",
	Long: `Lasso rounds up the free-text reason labels that reviewers and models
attach to flagged transactions and consolidates them into a stable,
versioned taxonomy.

Near-duplicate spellings are clustered by fuzzy similarity, each cluster
elects a canonical label, and the result is written as a checksummed
YAML document with full version history, a per-period drift report, and
an append-only change log.

Typical session:
  lasso init                          # Scaffold config and directories
  lasso consolidate --periods 202509  # Consolidate one period
  lasso show                          # Inspect the current taxonomy
  lasso explore                       # Try labels interactively`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(debugMode)
		if noColor {
			color.NoColor = true
		}
	},
}

// loadConfig builds the effective configuration: defaults, then the
// config file, then environment overrides. Command flags are layered on
// top by each command. An explicit --config must exist; the default
// path is optional.
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	} else if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := config.FromEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default "+defaultConfigPath+" when present)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
