// Package engine runs one consolidation end to end.
//
// A run has three strict phases: read everything (period logs, prior
// latest document), compute everything (clusters, elections, document,
// drift rows, change diff), then write everything (taxonomy snapshot
// and pointer, drift report, change log, run index, in that order).
// A failure before the write phase leaves prior artifacts untouched,
// and dry-run stops at the phase boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rangefold/lasso/internal/changelog"
	"github.com/rangefold/lasso/internal/config"
	"github.com/rangefold/lasso/internal/drift"
	"github.com/rangefold/lasso/internal/ingest"
	"github.com/rangefold/lasso/internal/runindex"
	"github.com/rangefold/lasso/internal/taxonomy"
	"github.com/rangefold/lasso/internal/version"
)

// ErrNoSamples is returned when every requested period contributes zero
// usable samples. Nothing is written in that case.
var ErrNoSamples = errors.New("no samples found")

// Options configures one run.
type Options struct {
	// Config carries paths, threshold, scorer, and gating flags.
	Config config.Config
	// Periods are the period tokens to consolidate, in order; the last
	// one is the drift target.
	Periods []string
	// DryRun computes everything and writes nothing.
	DryRun bool
	// Now is a clock override for tests; nil means time.Now.
	Now func() time.Time
}

// Summary reports what a run computed and, unless dry-run, wrote.
type Summary struct {
	RunID          string
	Periods        []string
	TargetPeriod   string
	MissingPeriods []string
	Samples        int
	SkippedLines   int
	DistinctForms  int
	Clusters       int
	Document       *taxonomy.Document
	InputChecksums map[string]string

	VersionWritten bool
	Version        int
	VersionPath    string
	LatestPath     string
	OutputHash     string
	ContentHash    string

	DriftPath string
	DriftRows int

	Changes        []changelog.Change
	ChangesWritten int
	ChangelogPath  string

	IndexPath     string
	IndexRecorded bool

	DryRun bool
}

// Run executes one consolidation under opts. The returned summary is
// valid whenever the error is nil, including dry runs.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if len(opts.Periods) == 0 {
		return nil, fmt.Errorf("at least one period is required")
	}
	scorer, err := taxonomy.NewScorer(cfg.Scorer)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	startedAt := now()

	// Read phase.
	reader := &ingest.Reader{Dir: cfg.InputDir, Pattern: cfg.InputPattern}
	loaded, err := reader.Load(opts.Periods)
	if err != nil {
		return nil, err
	}
	if len(loaded.Samples) == 0 {
		return nil, fmt.Errorf("%w for periods %s", ErrNoSamples, strings.Join(opts.Periods, ", "))
	}

	store := version.NewStore(cfg.TaxonomyPath)
	prior, err := store.LoadLatest()
	if err != nil && !errors.Is(err, version.ErrNoDocument) {
		return nil, err
	}
	if prior != nil && !taxonomy.SchemaCompatible(prior.Schema, cfg.Schema) {
		slog.Warn("prior taxonomy has an incompatible schema; diff may be unreliable",
			"prior", prior.Schema, "current", cfg.Schema)
	}

	// Compute phase.
	idx := taxonomy.BuildIndex(loaded.Samples)
	clusterer := &taxonomy.Clusterer{Threshold: cfg.Threshold, Scorer: scorer}
	clusters := clusterer.Cluster(idx)
	selections := make([]taxonomy.Selection, 0, len(clusters))
	for _, cl := range clusters {
		selections = append(selections, taxonomy.SelectCanonical(cl, idx))
	}
	doc := taxonomy.BuildDocument(cfg.Schema, startedAt, selections, idx)

	target := opts.Periods[len(opts.Periods)-1]
	driftRows := drift.Analyze(doc, loaded.Samples, target)
	changes := changelog.Diff(prior, doc)

	summary := &Summary{
		RunID:          uuid.NewString(),
		Periods:        opts.Periods,
		TargetPeriod:   target,
		MissingPeriods: loaded.Missing,
		Samples:        len(loaded.Samples),
		SkippedLines:   loaded.Skipped,
		DistinctForms:  idx.Distinct(),
		Clusters:       len(clusters),
		Document:       doc,
		InputChecksums: loaded.Checksums,
		LatestPath:     store.LatestPath(),
		DriftPath:      cfg.DriftPath,
		DriftRows:      len(driftRows),
		Changes:        changes,
		ChangelogPath:  cfg.ChangelogPath,
		IndexPath:      cfg.IndexPath,
		DryRun:         opts.DryRun,
	}
	if summary.DriftPath == "" {
		summary.DriftPath = filepath.Join(cfg.InputDir, "taxonomy_drift_"+target+".csv")
	}
	slog.Debug("computed taxonomy",
		"samples", summary.Samples, "forms", summary.DistinctForms,
		"clusters", summary.Clusters, "changes", len(changes))

	if opts.DryRun {
		hash, err := doc.ContentHash()
		if err != nil {
			return nil, err
		}
		summary.ContentHash = hash
		return summary, nil
	}

	// Write phase: taxonomy, drift, change log, run index.
	res, err := store.Write(doc, prior)
	if err != nil {
		return nil, err
	}
	summary.VersionWritten = res.Written
	summary.Version = res.Version
	summary.VersionPath = res.Path
	summary.OutputHash = res.Hash
	summary.ContentHash = res.ContentHash

	if err := drift.WriteFile(summary.DriftPath, driftRows, loaded.Checksums); err != nil {
		return nil, err
	}

	if cfg.ChangelogPath != "" && cfg.Append && len(changes) > 0 {
		records := changelog.BuildRecords(changes, changelog.Context{
			RunID:          summary.RunID,
			Timestamp:      startedAt,
			Threshold:      cfg.Threshold,
			Scorer:         scorer.Name(),
			Periods:        opts.Periods,
			InputChecksums: loaded.Checksums,
			OutputChecksum: res.Hash,
		})
		if err := changelog.Append(cfg.ChangelogPath, records); err != nil {
			return nil, err
		}
		summary.ChangesWritten = len(records)
	}

	if cfg.IndexPath != "" {
		run := &runindex.Run{
			ID:         summary.RunID,
			StartedAt:  startedAt,
			FinishedAt: now(),
			Periods:    opts.Periods,
			Threshold:  cfg.Threshold,
			Scorer:     scorer.Name(),
			Samples:    summary.Samples,
			Clusters:   summary.Clusters,
			Version:    res.Version,
			OutputHash: res.Hash,
			Changes:    len(changes),
			Inputs:     loaded.Checksums,
		}
		if err := recordRun(ctx, cfg.IndexPath, run); err != nil {
			return nil, err
		}
		summary.IndexRecorded = true
	}
	return summary, nil
}

func recordRun(ctx context.Context, path string, run *runindex.Run) error {
	index, err := runindex.Open(path)
	if err != nil {
		return err
	}
	defer index.Close()
	return index.Record(ctx, run)
}
