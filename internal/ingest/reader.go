// Package ingest loads period-scoped annotation logs into samples.
//
// Each period is one JSONL file named by a pattern like
// review_reasons_202510.jsonl: one JSON object per line with a required
// reason field plus optional confidence and model_version. Missing
// files are tolerated; malformed lines are skipped; both are counted so
// callers can decide whether anything usable arrived.
package ingest

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// maxLineBytes bounds a single annotation record; anything larger is
// malformed by definition.
const maxLineBytes = 1024 * 1024

// Reader loads period files from one directory.
type Reader struct {
	// Dir is the directory holding the period files.
	Dir string
	// Pattern names period files and must contain exactly one %s,
	// replaced by the period token.
	Pattern string
}

// Result is one load: samples in file-then-line order plus bookkeeping
// for provenance and diagnostics.
type Result struct {
	// Samples holds every usable record, in input order.
	Samples []taxonomy.Sample
	// Checksums maps each period that was actually read to the hex
	// SHA-256 of its file bytes.
	Checksums map[string]string
	// Skipped counts malformed or reason-less lines.
	Skipped int
	// Missing lists requested periods whose file did not exist.
	Missing []string
}

// record mirrors one line of an annotation log.
type record struct {
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
}

// Load reads the requested periods in order. A missing period file
// contributes nothing and is recorded in Missing; a file that exists
// but cannot be read or scanned is an error.
func (r *Reader) Load(periods []string) (*Result, error) {
	res := &Result{Checksums: make(map[string]string)}
	for _, period := range periods {
		path := filepath.Join(r.Dir, fmt.Sprintf(r.Pattern, period))
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("period file missing", "period", period, "path", path)
			res.Missing = append(res.Missing, period)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read period %s: %w", period, err)
		}
		sum := sha256.Sum256(data)
		res.Checksums[period] = hex.EncodeToString(sum[:])
		if err := r.scan(res, period, data); err != nil {
			return nil, fmt.Errorf("scan period %s: %w", period, err)
		}
	}
	return res, nil
}

func (r *Reader) scan(res *Result, period string, data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			slog.Debug("skipping malformed line", "period", period, "line", line, "err", err)
			res.Skipped++
			continue
		}
		raw := strings.TrimSpace(rec.Reason)
		if raw == "" {
			slog.Debug("skipping line without reason", "period", period, "line", line)
			res.Skipped++
			continue
		}
		res.Samples = append(res.Samples, taxonomy.Sample{
			Raw:          raw,
			Norm:         taxonomy.Normalize(raw),
			Confidence:   rec.Confidence,
			Period:       period,
			ModelVersion: rec.ModelVersion,
		})
	}
	return sc.Err()
}
