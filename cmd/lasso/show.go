package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/version"
)

var (
	showTaxonomy string
	showRaw      bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current taxonomy",
	Long: `Print the latest consolidated taxonomy: every canonical label with its
aliases and metrics. With --raw the checksummed YAML artifact is dumped
byte for byte instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("taxonomy") {
			cfg.TaxonomyPath = showTaxonomy
		}

		store := version.NewStore(cfg.TaxonomyPath)

		if showRaw {
			data, err := os.ReadFile(store.LatestPath())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Stdout.Write(data)
			return
		}

		doc, err := store.LoadLatest()
		if err != nil {
			if errors.Is(err, version.ErrNoDocument) {
				fmt.Fprintf(os.Stderr, "Error: no taxonomy at %s, run 'lasso consolidate' first\n", store.LatestPath())
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Reason Taxonomy ==="))
		fmt.Printf("  Schema:    %s\n", doc.Schema)
		fmt.Printf("  Generated: %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Items:     %d\n", len(doc.Items))
		fmt.Println()

		for _, item := range doc.Items {
			fmt.Printf("%s %s\n", green("●"), item.Canonical)
			fmt.Printf("    count %d, avg confidence %.2f, periods %v\n",
				item.Metrics.Count, item.Metrics.AvgConf, item.Metrics.Periods)
			if len(item.Aliases) == 0 {
				fmt.Printf("    %s\n", gray("no aliases"))
			}
			for _, alias := range item.Aliases {
				fmt.Printf("    %s %s\n", gray("·"), alias)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showTaxonomy, "taxonomy", "", "Path of the latest-taxonomy file")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Dump the raw checksummed YAML artifact")
}
