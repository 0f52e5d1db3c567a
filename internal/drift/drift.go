// Package drift reports how alias usage is distributed in the most
// recent period, so operators can watch phrasings migrate between
// canonicals over time.
package drift

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// Row is one alias usage observation within the target period. The
// canonical's own spelling gets a row too, so share percentages cover
// every observed variant.
type Row struct {
	Period        string
	Alias         string
	CanonicalNorm string
	Count         int
	SharePct      float64
	AvgConf       float64
}

// Analyze produces one row per raw variant of every taxonomy item that
// actually appears in the target period, ordered item by item as the
// document lists them. Share is the variant's percentage of all
// target-period samples, rounded to two decimals.
func Analyze(doc *taxonomy.Document, samples []taxonomy.Sample, period string) []Row {
	counts := make(map[string]int)
	confSums := make(map[string]float64)
	total := 0
	for _, s := range samples {
		if s.Period != period {
			continue
		}
		counts[s.Raw]++
		confSums[s.Raw] += s.Confidence
		total++
	}
	if total == 0 {
		return nil
	}

	var rows []Row
	for _, item := range doc.Items {
		for _, variant := range append([]string{item.Canonical}, item.Aliases...) {
			n := counts[variant]
			if n == 0 {
				continue
			}
			rows = append(rows, Row{
				Period:        period,
				Alias:         variant,
				CanonicalNorm: item.CanonicalNorm,
				Count:         n,
				SharePct:      math.Round(float64(n)/float64(total)*10000) / 100,
				AvgConf:       confSums[variant] / float64(n),
			})
		}
	}
	return rows
}

// WriteCSV writes rows preceded by a metadata line that maps each input
// period to the checksum of its source file.
func WriteCSV(w io.Writer, rows []Row, inputChecksums map[string]string) error {
	meta, err := json.Marshal(inputChecksums)
	if err != nil {
		return fmt.Errorf("encode input checksums: %w", err)
	}
	if _, err := fmt.Fprintf(w, "# input_checksums=%s\n", meta); err != nil {
		return fmt.Errorf("write drift metadata: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"period", "alias", "canonical_norm", "count", "share_pct", "avg_conf"}); err != nil {
		return fmt.Errorf("write drift header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Period,
			r.Alias,
			r.CanonicalNorm,
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.SharePct, 'f', 2, 64),
			strconv.FormatFloat(r.AvgConf, 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write drift row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush drift report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path, creating parent directories.
func WriteFile(path string, rows []Row, inputChecksums map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create drift dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create drift report: %w", err)
	}
	if err := WriteCSV(f, rows, inputChecksums); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
