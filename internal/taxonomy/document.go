package taxonomy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSchema identifies the document layout this package emits.
const DefaultSchema = "lasso.taxonomy.reasons/v1.0.0"

// ItemMetrics summarizes the samples behind one taxonomy item.
type ItemMetrics struct {
	Count   int      `yaml:"count"`
	AvgConf float64  `yaml:"avg_conf"`
	Periods []string `yaml:"periods"`
}

// Item is one canonical label with its aliases and usage metrics.
type Item struct {
	Canonical     string      `yaml:"canonical"`
	CanonicalNorm string      `yaml:"canonical_norm"`
	Aliases       []string    `yaml:"aliases"`
	Metrics       ItemMetrics `yaml:"metrics"`
}

// Document is one full taxonomy snapshot.
type Document struct {
	Schema      string    `yaml:"schema"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Items       []Item    `yaml:"items"`
}

// BuildDocument assembles the snapshot for a set of elected clusters.
// Items are ordered by descending sample count, then canonical label
// ascending (case-insensitive), so equal selections always serialize to
// the same bytes.
func BuildDocument(schema string, generatedAt time.Time, selections []Selection, idx *Index) *Document {
	doc := &Document{
		Schema:      schema,
		GeneratedAt: generatedAt.UTC().Truncate(time.Second),
		Items:       make([]Item, 0, len(selections)),
	}
	for _, sel := range selections {
		var count int
		var confSum float64
		periodSet := make(map[string]struct{})
		for _, n := range sel.Members {
			count += idx.Count(n)
			confSum += idx.ConfidenceSum(n)
			for _, p := range idx.Periods(n) {
				periodSet[p] = struct{}{}
			}
		}
		m := ItemMetrics{Count: count, Periods: make([]string, 0, len(periodSet))}
		if count > 0 {
			m.AvgConf = confSum / float64(count)
		}
		for p := range periodSet {
			m.Periods = append(m.Periods, p)
		}
		sort.Strings(m.Periods)

		aliases := sel.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		doc.Items = append(doc.Items, Item{
			Canonical:     sel.Canonical,
			CanonicalNorm: sel.CanonicalNorm,
			Aliases:       aliases,
			Metrics:       m,
		})
	}

	sort.SliceStable(doc.Items, func(i, j int) bool {
		a, b := doc.Items[i], doc.Items[j]
		if a.Metrics.Count != b.Metrics.Count {
			return a.Metrics.Count > b.Metrics.Count
		}
		la, lb := strings.ToLower(a.Canonical), strings.ToLower(b.Canonical)
		if la != lb {
			return la < lb
		}
		return a.Canonical < b.Canonical
	})
	return doc
}

// Encode renders the document as YAML with two-space indentation. The
// output is the artifact body that gets checksummed and written.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode taxonomy document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode taxonomy document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDocument parses a document body produced by Encode.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy document: %w", err)
	}
	return &doc, nil
}

// contentEnvelope is the timestamp-free projection hashed for the
// version decision. generated_at moves on every run; the decision must
// not.
type contentEnvelope struct {
	Schema string `yaml:"schema"`
	Items  []Item `yaml:"items"`
}

// ContentHash returns the hex SHA-256 of the document's timestamp-free
// canonical serialization. Two documents hash equal exactly when their
// schema and items agree.
func (d *Document) ContentHash() (string, error) {
	data, err := yaml.Marshal(contentEnvelope{Schema: d.Schema, Items: d.Items})
	if err != nil {
		return "", fmt.Errorf("hash taxonomy content: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
