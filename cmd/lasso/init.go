package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold lasso directories and a starter config",
	Long: `Create the directories lasso writes to and a starter config file at
.lasso/config.yml. Existing files are never overwritten.

This creates:
  - .lasso/ with config.yml and the run-index database location
  - logs/ for period annotation logs and the change log
  - data/taxonomy/ for versioned taxonomy documents

Example:
  lasso init
  lasso init --dir /srv/lasso`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Config paths are workspace-relative; --dir re-roots them.
		in := func(path string) string { return filepath.Join(initDir, path) }
		configPath := in(defaultConfigPath)

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		dirs := []string{
			filepath.Dir(configPath),
			in(cfg.InputDir),
			filepath.Dir(in(cfg.TaxonomyPath)),
			filepath.Dir(in(cfg.ChangelogPath)),
		}
		if cfg.IndexPath != "" {
			dirs = append(dirs, filepath.Dir(in(cfg.IndexPath)))
		}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to create %s: %v\n", dir, err)
				os.Exit(1)
			}
		}

		wroteConfig := false
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			body, err := yaml.Marshal(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			content := append([]byte("# lasso configuration, see 'lasso consolidate --help' for the knobs\n"), body...)
			if err := os.WriteFile(configPath, content, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", configPath, err)
				os.Exit(1)
			}
			wroteConfig = true
		}

		fmt.Printf("\n%s Initialized lasso workspace\n\n", green("✓"))
		if wroteConfig {
			fmt.Printf("  Config:   %s\n", cyan(configPath))
		} else {
			fmt.Printf("  Config:   %s %s\n", cyan(configPath), gray("(already present, left untouched)"))
		}
		fmt.Printf("  Logs:     %s\n", cyan(in(cfg.InputDir)))
		fmt.Printf("  Taxonomy: %s\n", cyan(filepath.Dir(in(cfg.TaxonomyPath))))
		fmt.Println()

		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray(fmt.Sprintf("drop annotation logs into %s/%s", in(cfg.InputDir), fmt.Sprintf(cfg.InputPattern, "<period>"))))
		fmt.Printf("  %s\n", gray("lasso consolidate --periods <period>"))
		fmt.Printf("  %s\n", gray("lasso show"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to scaffold into")
}
