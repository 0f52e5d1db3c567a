package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/changelog"
	"github.com/rangefold/lasso/internal/engine"
)

var (
	consolidatePeriods   []string
	consolidateThreshold int
	consolidateScorer    string
	consolidateInputDir  string
	consolidateTaxonomy  string
	consolidateDrift     string
	consolidateChangelog string
	consolidateAppend    bool
	consolidateDryRun    bool
	consolidateShow      bool
	consolidateNoIndex   bool
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate period logs into the versioned taxonomy",
	Long: `Read the annotation logs for the given periods, cluster near-duplicate
reason labels, elect canonical labels, and write the taxonomy artifacts:
a new version snapshot when the content changed, the refreshed latest
pointer, a drift report for the last period, and the change log.

Nothing is written when every requested period is empty or missing, or
when --dry-run is given.

Example:
  lasso consolidate --periods 202509
  lasso consolidate --periods 202509,202510 --threshold 90
  lasso consolidate --periods 202510 --dry-run --show`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Flags outrank the config file and environment, but only when
		// actually set on the command line.
		flags := cmd.Flags()
		if flags.Changed("threshold") {
			cfg.Threshold = consolidateThreshold
		}
		if flags.Changed("scorer") {
			cfg.Scorer = consolidateScorer
		}
		if flags.Changed("input-dir") {
			cfg.InputDir = consolidateInputDir
		}
		if flags.Changed("taxonomy") {
			cfg.TaxonomyPath = consolidateTaxonomy
		}
		if flags.Changed("drift") {
			cfg.DriftPath = consolidateDrift
		}
		if flags.Changed("changelog") {
			cfg.ChangelogPath = consolidateChangelog
		}
		if flags.Changed("append") {
			cfg.Append = consolidateAppend
		}
		if consolidateNoIndex {
			cfg.IndexPath = ""
		}

		summary, err := engine.Run(cmd.Context(), engine.Options{
			Config:  cfg,
			Periods: consolidatePeriods,
			DryRun:  consolidateDryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printSummary(summary)

		if consolidateShow {
			body, err := summary.Document.Encode()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println()
			os.Stdout.Write(body)
		}
	},
}

func printSummary(s *engine.Summary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Consolidation Summary ==="))

	fmt.Printf("%s\n", yellow("Input:"))
	fmt.Printf("  Periods: %s\n", strings.Join(s.Periods, ", "))
	fmt.Printf("  Samples: %d (%d distinct forms, %d skipped lines)\n",
		s.Samples, s.DistinctForms, s.SkippedLines)
	if len(s.MissingPeriods) > 0 {
		fmt.Printf("  %s no log file for: %s\n", yellow("⚠"), strings.Join(s.MissingPeriods, ", "))
	}
	fmt.Println()

	fmt.Printf("%s\n", yellow("Taxonomy:"))
	fmt.Printf("  Items: %d (from %d clusters)\n", len(s.Document.Items), s.Clusters)
	if s.DryRun {
		fmt.Printf("  %s\n", gray("Dry run: no artifacts written"))
	} else if s.VersionWritten {
		fmt.Printf("  %s Version %d written: %s\n", green("✓"), s.Version, s.VersionPath)
		fmt.Printf("  Latest: %s\n", s.LatestPath)
	} else {
		fmt.Printf("  %s Content unchanged, no new version\n", gray("○"))
		fmt.Printf("  Latest: %s\n", s.LatestPath)
	}
	fmt.Printf("  Checksum: %s\n", gray(shortHash(s.ContentHash)))
	fmt.Println()

	if !s.DryRun {
		fmt.Printf("%s\n", yellow("Drift:"))
		fmt.Printf("  %d rows for %s: %s\n", s.DriftRows, s.TargetPeriod, s.DriftPath)
		fmt.Println()
	}

	fmt.Printf("%s\n", yellow("Changes:"))
	if len(s.Changes) == 0 {
		fmt.Printf("  %s\n", gray("No taxonomy changes"))
	} else {
		for _, c := range s.Changes {
			switch c.Action {
			case changelog.ActionNewCanonical:
				fmt.Printf("  %s %s %q\n", green("+"), c.Action, c.Canonical)
			case changelog.ActionAddedAlias:
				fmt.Printf("  %s %s %q -> %q\n", green("+"), c.Action, c.Alias, c.Canonical)
			case changelog.ActionRemovedAlias:
				fmt.Printf("  %s %s %q -> %q\n", red("-"), c.Action, c.Alias, c.Canonical)
			}
		}
		switch {
		case s.DryRun:
			fmt.Printf("  %s\n", gray("Dry run: change log not appended"))
		case s.ChangesWritten > 0:
			fmt.Printf("  %d recorded in %s\n", s.ChangesWritten, s.ChangelogPath)
		default:
			fmt.Printf("  %s\n", gray("Change log disabled (--append=false)"))
		}
	}
	fmt.Println()
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
	consolidateCmd.Flags().StringSliceVar(&consolidatePeriods, "periods", nil, "Periods to consolidate, e.g. 202509,202510 (required)")
	consolidateCmd.Flags().IntVar(&consolidateThreshold, "threshold", 87, "Fuzzy match threshold (0-100)")
	consolidateCmd.Flags().StringVar(&consolidateScorer, "scorer", "", "Similarity scorer: jaro-winkler or token-sort")
	consolidateCmd.Flags().StringVar(&consolidateInputDir, "input-dir", "", "Directory holding the period log files")
	consolidateCmd.Flags().StringVar(&consolidateTaxonomy, "taxonomy", "", "Path of the latest-taxonomy file")
	consolidateCmd.Flags().StringVar(&consolidateDrift, "drift", "", "Path of the drift report (default <input-dir>/taxonomy_drift_<period>.csv)")
	consolidateCmd.Flags().StringVar(&consolidateChangelog, "changelog", "", "Path of the change log")
	consolidateCmd.Flags().BoolVar(&consolidateAppend, "append", true, "Append change records to the change log")
	consolidateCmd.Flags().BoolVar(&consolidateDryRun, "dry-run", false, "Compute everything, write nothing")
	consolidateCmd.Flags().BoolVar(&consolidateShow, "show", false, "Print the resulting taxonomy YAML")
	consolidateCmd.Flags().BoolVar(&consolidateNoIndex, "no-index", false, "Skip recording the run in the run index")
	_ = consolidateCmd.MarkFlagRequired("periods")
}
