package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/explore"
	"github.com/rangefold/lasso/internal/taxonomy"
	"github.com/rangefold/lasso/internal/version"
)

var (
	exploreTaxonomy  string
	exploreThreshold int
	exploreScorer    string
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively probe the taxonomy with candidate labels",
	Long: `Start an interactive shell over the latest taxonomy. Type a label to see
which canonical it would merge into under the current threshold, or
whether it would start a new one. The threshold and scorer can be
changed on the fly to rehearse a consolidation before running it.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		flags := cmd.Flags()
		if flags.Changed("taxonomy") {
			cfg.TaxonomyPath = exploreTaxonomy
		}
		if flags.Changed("threshold") {
			cfg.Threshold = exploreThreshold
		}
		if flags.Changed("scorer") {
			cfg.Scorer = exploreScorer
		}

		store := version.NewStore(cfg.TaxonomyPath)
		doc, err := store.LoadLatest()
		if err != nil {
			if errors.Is(err, version.ErrNoDocument) {
				fmt.Fprintf(os.Stderr, "Error: no taxonomy at %s, run 'lasso consolidate' first\n", store.LatestPath())
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}

		scorer, err := taxonomy.NewScorer(cfg.Scorer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		session, err := explore.New(&explore.Config{
			Document:    doc,
			Threshold:   cfg.Threshold,
			Scorer:      scorer,
			HistoryFile: filepath.Join(os.TempDir(), "lasso_explore_history"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := session.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVar(&exploreTaxonomy, "taxonomy", "", "Path of the latest-taxonomy file")
	exploreCmd.Flags().IntVar(&exploreThreshold, "threshold", 87, "Fuzzy match threshold (0-100)")
	exploreCmd.Flags().StringVar(&exploreScorer, "scorer", "", "Similarity scorer: jaro-winkler or token-sort")
}
