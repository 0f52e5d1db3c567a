package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangefold/lasso/internal/changelog"
	"github.com/rangefold/lasso/internal/config"
	"github.com/rangefold/lasso/internal/runindex"
	"github.com/rangefold/lasso/internal/version"
)

// errorCodeLines is a period file whose four raw spellings collapse to
// two normalized forms that score above the default threshold, so one
// consolidated item with three aliases should come out the other end.
var errorCodeLines = []string{
	`{"reason": "Wrong error code", "confidence": 0.82, "model_version": "rev-9"}`,
	`{"reason": "wrong error code.", "confidence": 0.80, "model_version": "rev-9"}`,
	`{"reason": "Error code incorrect", "confidence": 0.78, "model_version": "rev-9"}`,
	`{"reason": "Wrong  error   code", "confidence": 0.85, "model_version": "rev-9"}`,
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputDir = filepath.Join(dir, "logs")
	cfg.TaxonomyPath = filepath.Join(dir, "data", "reasons.latest.yml")
	cfg.ChangelogPath = filepath.Join(dir, "logs", "changes.jsonl")
	cfg.IndexPath = filepath.Join(dir, "index", "lasso.db")
	return cfg
}

func writePeriod(t *testing.T, cfg config.Config, period string, lines []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	path := filepath.Join(cfg.InputDir, fmt.Sprintf(cfg.InputPattern, period))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func readRecords(t *testing.T, path string) []changelog.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []changelog.Record
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec changelog.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestRunConsolidatesNearDuplicateSpellings(t *testing.T) {
	cfg := testConfig(t)
	writePeriod(t, cfg, "202509", errorCodeLines)
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	summary, err := Run(context.Background(), Options{
		Config:  cfg,
		Periods: []string{"202509"},
		Now:     func() time.Time { return started },
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Samples)
	assert.Equal(t, 2, summary.DistinctForms)
	assert.Equal(t, 1, summary.Clusters)
	assert.Empty(t, summary.MissingPeriods)
	assert.Equal(t, "202509", summary.TargetPeriod)

	require.Len(t, summary.Document.Items, 1)
	item := summary.Document.Items[0]
	assert.Equal(t, "Wrong error code", item.Canonical)
	assert.Equal(t, "wrong error code", item.CanonicalNorm)
	assert.Equal(t, []string{"wrong error code.", "Error code incorrect", "Wrong  error   code"}, item.Aliases)
	assert.Equal(t, 4, item.Metrics.Count)
	assert.InDelta(t, 0.8125, item.Metrics.AvgConf, 1e-9)
	assert.Equal(t, []string{"202509"}, item.Metrics.Periods)

	// First run allocates version 1 and both artifacts verify.
	assert.True(t, summary.VersionWritten)
	assert.Equal(t, 1, summary.Version)
	assert.Equal(t, cfg.TaxonomyPath, summary.LatestPath)
	for _, path := range []string{summary.VersionPath, summary.LatestPath} {
		hash, err := version.VerifyFile(path)
		require.NoError(t, err)
		assert.Equal(t, summary.OutputHash, hash)
	}

	// Every spelling seen in the target period gets a drift row.
	assert.Equal(t, 4, summary.DriftRows)
	data, err := os.ReadFile(summary.DriftPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# input_checksums=")
	assert.Contains(t, string(data), "202509,Wrong error code,wrong error code,1,25.00,0.8200")

	// One brand-new canonical, stamped with the run's provenance.
	assert.Equal(t, 1, summary.ChangesWritten)
	records := readRecords(t, cfg.ChangelogPath)
	require.Len(t, records, 1)
	assert.Equal(t, changelog.ActionNewCanonical, records[0].Action)
	assert.Equal(t, "Wrong error code", records[0].Canonical)
	assert.Empty(t, records[0].Alias)
	assert.Equal(t, summary.RunID, records[0].RunID)
	assert.Equal(t, 87, records[0].Threshold)
	assert.Equal(t, "jaro-winkler", records[0].Scorer)
	assert.Equal(t, summary.OutputHash, records[0].OutputChecksum)
	assert.Equal(t, summary.InputChecksums, records[0].InputChecksums)

	// The run is indexed with its outcome.
	assert.True(t, summary.IndexRecorded)
	index, err := runindex.Open(cfg.IndexPath)
	require.NoError(t, err)
	defer index.Close()
	runs, err := index.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, 4, runs[0].Samples)
	assert.Equal(t, 1, runs[0].Version)
	assert.Equal(t, summary.OutputHash, runs[0].OutputHash)
}

func TestRunFailsFastWithoutSamples(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))

	summary, err := Run(context.Background(), Options{
		Config:  cfg,
		Periods: []string{"202509", "202510"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Contains(t, err.Error(), "no samples found")
	assert.Nil(t, summary)

	// Nothing may be written on a failed run.
	for _, path := range []string{cfg.TaxonomyPath, cfg.ChangelogPath, cfg.IndexPath} {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "expected %s to be absent", path)
	}
}

func TestRunAllocatesNewVersionForNewLabel(t *testing.T) {
	cfg := testConfig(t)
	writePeriod(t, cfg, "202509", errorCodeLines)

	first, err := Run(context.Background(), Options{Config: cfg, Periods: []string{"202509"}})
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)

	writePeriod(t, cfg, "202510", []string{
		`{"reason": "Payment declined by gateway", "confidence": 0.91, "model_version": "rev-9"}`,
	})
	second, err := Run(context.Background(), Options{Config: cfg, Periods: []string{"202509", "202510"}})
	require.NoError(t, err)

	assert.True(t, second.VersionWritten)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "202510", second.TargetPeriod)
	require.Len(t, second.Document.Items, 2)
	assert.Equal(t, "Wrong error code", second.Document.Items[0].Canonical)
	assert.Equal(t, "Payment declined by gateway", second.Document.Items[1].Canonical)

	store := version.NewStore(cfg.TaxonomyPath)
	infos, err := store.Versions()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].Version)
	assert.Equal(t, 2, infos[1].Version)

	// The second run appends exactly one record, for the new label only.
	records := readRecords(t, cfg.ChangelogPath)
	require.Len(t, records, 2)
	assert.Equal(t, changelog.ActionNewCanonical, records[1].Action)
	assert.Equal(t, "Payment declined by gateway", records[1].Canonical)
	assert.Equal(t, second.RunID, records[1].RunID)
}

func TestRunIsIdempotentOnIdenticalInput(t *testing.T) {
	cfg := testConfig(t)
	writePeriod(t, cfg, "202509", errorCodeLines)

	first, err := Run(context.Background(), Options{
		Config:  cfg,
		Periods: []string{"202509"},
		Now:     func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	second, err := Run(context.Background(), Options{
		Config:  cfg,
		Periods: []string{"202509"},
		Now:     func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	// Same content, so no new snapshot and no change records; only the
	// latest pointer picks up the fresh timestamp.
	assert.False(t, second.VersionWritten)
	assert.Equal(t, 0, second.Version)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Empty(t, second.Changes)
	assert.Equal(t, 0, second.ChangesWritten)

	store := version.NewStore(cfg.TaxonomyPath)
	infos, err := store.Versions()
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	latest, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), latest.GeneratedAt)

	records := readRecords(t, cfg.ChangelogPath)
	assert.Len(t, records, 1)

	index, err := runindex.Open(cfg.IndexPath)
	require.NoError(t, err)
	defer index.Close()
	runs, err := index.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	writePeriod(t, cfg, "202509", errorCodeLines)

	summary, err := Run(context.Background(), Options{
		Config:  cfg,
		Periods: []string{"202509"},
		DryRun:  true,
	})
	require.NoError(t, err)

	// The full computation is reported, including the pending changes.
	assert.True(t, summary.DryRun)
	assert.Equal(t, 4, summary.Samples)
	assert.Equal(t, 1, summary.Clusters)
	assert.NotEmpty(t, summary.ContentHash)
	require.Len(t, summary.Changes, 1)
	assert.Equal(t, changelog.ActionNewCanonical, summary.Changes[0].Action)
	assert.False(t, summary.VersionWritten)
	assert.Equal(t, 0, summary.ChangesWritten)
	assert.False(t, summary.IndexRecorded)

	for _, path := range []string{cfg.TaxonomyPath, summary.DriftPath, cfg.ChangelogPath, cfg.IndexPath} {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "expected %s to be absent", path)
	}
}

func TestRunWithoutAppendSkipsChangeLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Append = false
	writePeriod(t, cfg, "202509", errorCodeLines)

	summary, err := Run(context.Background(), Options{Config: cfg, Periods: []string{"202509"}})
	require.NoError(t, err)

	assert.True(t, summary.VersionWritten)
	require.Len(t, summary.Changes, 1)
	assert.Equal(t, 0, summary.ChangesWritten)
	_, statErr := os.Stat(cfg.ChangelogPath)
	assert.True(t, os.IsNotExist(statErr))

	_, err = os.Stat(summary.DriftPath)
	assert.NoError(t, err)
}

func TestRunToleratesMissingPeriods(t *testing.T) {
	cfg := testConfig(t)
	writePeriod(t, cfg, "202509", errorCodeLines)

	summary, err := Run(context.Background(), Options{Config: cfg, Periods: []string{"202508", "202509"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"202508"}, summary.MissingPeriods)
	assert.Equal(t, 4, summary.Samples)
	assert.Equal(t, "202509", summary.TargetPeriod)
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Threshold = 300
	_, err := Run(context.Background(), Options{Config: cfg, Periods: []string{"202509"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	cfg = testConfig(t)
	_, err = Run(context.Background(), Options{Config: cfg})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one period")
}
