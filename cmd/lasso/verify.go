package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rangefold/lasso/internal/version"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Verify the embedded checksum of taxonomy files",
	Long: `Re-hash each taxonomy file and compare against the checksum embedded in
its header line. Exits non-zero if any file fails.

Example:
  lasso verify data/taxonomy/reasons.latest.yml
  lasso verify data/taxonomy/reasons.v*.yml`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		failures := 0
		for _, path := range args {
			hash, err := version.VerifyFile(path)
			if err != nil {
				fmt.Printf("%s %s: %v\n", red("✗"), path, err)
				failures++
				continue
			}
			fmt.Printf("%s %s %s\n", green("✓"), path, gray(shortHash(hash)))
		}
		if failures > 0 {
			fmt.Fprintf(os.Stderr, "Error: %d of %d files failed verification\n", failures, len(args))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
