package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/runindex"
	"github.com/rangefold/lasso/internal/version"
)

var (
	historyTaxonomy string
	historyIndex    string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show taxonomy versions and recent consolidation runs",
	Long: `List every taxonomy snapshot on disk, oldest first, followed by the most
recent consolidation runs recorded in the run index.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("taxonomy") {
			cfg.TaxonomyPath = historyTaxonomy
		}
		if cmd.Flags().Changed("index") {
			cfg.IndexPath = historyIndex
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Taxonomy History ==="))

		store := version.NewStore(cfg.TaxonomyPath)
		infos, err := store.Versions()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", yellow("Versions:"))
		if len(infos) == 0 {
			fmt.Printf("  %s\n", gray("No snapshots yet, run 'lasso consolidate' first"))
		}
		for _, info := range infos {
			fmt.Printf("  v%-3d %s %s\n", info.Version, info.Path, gray(shortHash(info.Hash)))
		}
		fmt.Println()

		fmt.Printf("%s\n", yellow("Recent runs:"))
		if cfg.IndexPath == "" {
			fmt.Printf("  %s\n", gray("Run index disabled"))
			fmt.Println()
			return
		}
		if _, err := os.Stat(cfg.IndexPath); err != nil {
			fmt.Printf("  %s\n", gray("No run index yet"))
			fmt.Println()
			return
		}

		index, err := runindex.Open(cfg.IndexPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer index.Close()

		runs, err := index.Recent(cmd.Context(), historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Printf("  %s\n", gray("No runs recorded"))
		}
		for _, run := range runs {
			versionNote := gray("no new version")
			if run.Version > 0 {
				versionNote = fmt.Sprintf("v%d", run.Version)
			}
			fmt.Printf("  %s  %-18s %s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"),
				strings.Join(run.Periods, ","),
				versionNote)
			fmt.Printf("    %s\n", gray(fmt.Sprintf("%d samples, %d clusters, %d changes, scorer %s@%d, run %s",
				run.Samples, run.Clusters, run.Changes, run.Scorer, run.Threshold, shortHash(run.ID))))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyTaxonomy, "taxonomy", "", "Path of the latest-taxonomy file")
	historyCmd.Flags().StringVar(&historyIndex, "index", "", "Path of the run-index database")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show")
}
