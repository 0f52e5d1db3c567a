// Package changelog records taxonomy evolution as append-only JSONL,
// one self-contained record per change with full run provenance, so
// any canonical's history can be reconstructed without the database or
// the artifacts.
package changelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// Action classifies one taxonomy change.
type Action string

const (
	// ActionNewCanonical records a canonical label absent from the
	// prior document.
	ActionNewCanonical Action = "new_canonical"
	// ActionAddedAlias records an alias newly attached to an existing
	// canonical.
	ActionAddedAlias Action = "added_alias"
	// ActionRemovedAlias records an alias that left an existing
	// canonical.
	ActionRemovedAlias Action = "removed_alias"
)

// Change is one diff outcome, before run provenance is stamped on.
type Change struct {
	Action    Action
	Canonical string
	Alias     string // empty for new_canonical
}

// Context is the run provenance stamped onto every record.
type Context struct {
	RunID          string
	Timestamp      time.Time
	Threshold      int
	Scorer         string
	Periods        []string
	InputChecksums map[string]string
	OutputChecksum string
}

// Record is one append-only change-log entry.
type Record struct {
	TS             string            `json:"ts"`
	RunID          string            `json:"run_id"`
	Action         Action            `json:"action"`
	Canonical      string            `json:"canonical"`
	Alias          string            `json:"alias,omitempty"`
	Threshold      int               `json:"fuzzy_threshold"`
	Scorer         string            `json:"scorer"`
	Periods        []string          `json:"periods"`
	InputChecksums map[string]string `json:"input_checksums"`
	OutputChecksum string            `json:"output_checksum"`
}

// Diff compares the prior document against the new one, walking the new
// document's items in order. A canonical key absent before yields
// new_canonical; for surviving keys the symmetric difference of
// {canonical} ∪ aliases yields added_alias and removed_alias records,
// alphabetically within each item. Keys that vanished entirely produce
// nothing now; they surface as new_canonical if they ever return.
func Diff(prior, next *taxonomy.Document) []Change {
	old := make(map[string]map[string]struct{})
	if prior != nil {
		for _, item := range prior.Items {
			old[item.CanonicalNorm] = labelSet(item)
		}
	}

	var changes []Change
	for _, item := range next.Items {
		before, known := old[item.CanonicalNorm]
		if !known {
			changes = append(changes, Change{Action: ActionNewCanonical, Canonical: item.Canonical})
			continue
		}
		current := labelSet(item)
		for _, label := range sortedDiff(current, before) {
			changes = append(changes, Change{Action: ActionAddedAlias, Canonical: item.Canonical, Alias: label})
		}
		for _, label := range sortedDiff(before, current) {
			changes = append(changes, Change{Action: ActionRemovedAlias, Canonical: item.Canonical, Alias: label})
		}
	}
	return changes
}

// BuildRecords stamps run provenance onto diff outcomes.
func BuildRecords(changes []Change, ctx Context) []Record {
	ts := ctx.Timestamp.UTC().Format(time.RFC3339)
	records := make([]Record, 0, len(changes))
	for _, c := range changes {
		records = append(records, Record{
			TS:             ts,
			RunID:          ctx.RunID,
			Action:         c.Action,
			Canonical:      c.Canonical,
			Alias:          c.Alias,
			Threshold:      ctx.Threshold,
			Scorer:         ctx.Scorer,
			Periods:        ctx.Periods,
			InputChecksums: ctx.InputChecksums,
			OutputChecksum: ctx.OutputChecksum,
		})
	}
	return records
}

// Append writes records as JSON lines at path, creating parent
// directories as needed. Appending nothing is a no-op: an unchanged
// taxonomy leaves no trace in the log.
func Append(path string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create changelog dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}
	enc := json.NewEncoder(f)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			f.Close()
			return fmt.Errorf("append change record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close changelog: %w", err)
	}
	return nil
}

func labelSet(item taxonomy.Item) map[string]struct{} {
	set := make(map[string]struct{}, len(item.Aliases)+1)
	set[item.Canonical] = struct{}{}
	for _, a := range item.Aliases {
		set[a] = struct{}{}
	}
	return set
}

// sortedDiff returns the members of a not present in b, sorted.
func sortedDiff(a, b map[string]struct{}) []string {
	var out []string
	for label := range a {
		if _, ok := b[label]; !ok {
			out = append(out, label)
		}
	}
	sort.Strings(out)
	return out
}
