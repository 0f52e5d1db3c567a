// scripts/prune-runs.go - Manual run-index pruning tool
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rangefold/lasso/internal/runindex"
)

func main() {
	ctx := context.Background()

	// Use the default index location unless overridden
	indexPath := ".lasso/lasso.db"
	if p := os.Getenv("LASSO_INDEX"); p != "" {
		indexPath = p
	}

	// Keep 90 days of run history by default
	retentionDays := 90
	if v := os.Getenv("LASSO_RUN_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			fmt.Fprintf(os.Stderr, "Error: invalid LASSO_RUN_RETENTION_DAYS: %q\n", v)
			os.Exit(1)
		}
		retentionDays = days
	}

	fmt.Printf("Opening run index: %s\n", indexPath)

	index, err := runindex.Open(indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening run index: %v\n", err)
		os.Exit(1)
	}
	defer index.Close()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	fmt.Printf("Pruning runs started before %s...\n", cutoff.Format("2006-01-02"))

	pruned, err := index.Prune(ctx, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during pruning: %v\n", err)
		os.Exit(1)
	}

	if pruned > 0 {
		fmt.Printf("✓ Pruned %d run(s) from the index\n", pruned)
	} else {
		fmt.Println("✓ No runs older than the retention window")
	}
}
