package drift

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangefold/lasso/internal/taxonomy"
)

func driftFixture() (*taxonomy.Document, []taxonomy.Sample) {
	samples := []taxonomy.Sample{
		{Raw: "Wrong Error Code", Norm: "wrong error code", Confidence: 0.70, Period: "202509"},
		{Raw: "Wrong Error Code", Norm: "wrong error code", Confidence: 0.80, Period: "202510"},
		{Raw: "Error code incorrect", Norm: "error code incorrect", Confidence: 0.60, Period: "202510"},
		{Raw: "Error code incorrect", Norm: "error code incorrect", Confidence: 0.90, Period: "202510"},
		{Raw: "Missing documentation", Norm: "missing documentation", Confidence: 0.65, Period: "202510"},
	}
	doc := &taxonomy.Document{
		Schema:      taxonomy.DefaultSchema,
		GeneratedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Items: []taxonomy.Item{
			{
				Canonical:     "Wrong Error Code",
				CanonicalNorm: "wrong error code",
				Aliases:       []string{"Error code incorrect"},
			},
			{
				Canonical:     "Missing documentation",
				CanonicalNorm: "missing documentation",
				Aliases:       []string{},
			},
		},
	}
	return doc, samples
}

func TestAnalyzeCountsOnlyTargetPeriod(t *testing.T) {
	doc, samples := driftFixture()
	rows := Analyze(doc, samples, "202510")
	require.Len(t, rows, 3)

	// Document order: canonical first, then its aliases, then the next item.
	assert.Equal(t, "Wrong Error Code", rows[0].Alias)
	assert.Equal(t, "wrong error code", rows[0].CanonicalNorm)
	assert.Equal(t, 1, rows[0].Count, "the 202509 occurrence is out of scope")
	assert.InDelta(t, 25.0, rows[0].SharePct, 1e-9)
	assert.InDelta(t, 0.80, rows[0].AvgConf, 1e-9)

	assert.Equal(t, "Error code incorrect", rows[1].Alias)
	assert.Equal(t, "wrong error code", rows[1].CanonicalNorm)
	assert.Equal(t, 2, rows[1].Count)
	assert.InDelta(t, 50.0, rows[1].SharePct, 1e-9)
	assert.InDelta(t, 0.75, rows[1].AvgConf, 1e-9)

	assert.Equal(t, "Missing documentation", rows[2].Alias)
	assert.Equal(t, 1, rows[2].Count)
	assert.InDelta(t, 25.0, rows[2].SharePct, 1e-9)

	for _, r := range rows {
		assert.Equal(t, "202510", r.Period)
	}
}

func TestAnalyzeSkipsUnseenVariants(t *testing.T) {
	doc, samples := driftFixture()
	rows := Analyze(doc, samples, "202509")
	require.Len(t, rows, 1, "only the canonical itself appeared in 202509")
	assert.Equal(t, "Wrong Error Code", rows[0].Alias)
	assert.InDelta(t, 100.0, rows[0].SharePct, 1e-9)
}

func TestAnalyzeEmptyPeriod(t *testing.T) {
	doc, samples := driftFixture()
	assert.Nil(t, Analyze(doc, samples, "202512"))
}

func TestAnalyzeShareRounding(t *testing.T) {
	samples := []taxonomy.Sample{
		{Raw: "A", Norm: "a", Period: "p"},
		{Raw: "B", Norm: "b", Period: "p"},
		{Raw: "B", Norm: "b", Period: "p"},
	}
	doc := &taxonomy.Document{Items: []taxonomy.Item{
		{Canonical: "A", CanonicalNorm: "a", Aliases: []string{}},
		{Canonical: "B", CanonicalNorm: "b", Aliases: []string{}},
	}}
	rows := Analyze(doc, samples, "p")
	require.Len(t, rows, 2)
	assert.InDelta(t, 33.33, rows[0].SharePct, 1e-9)
	assert.InDelta(t, 66.67, rows[1].SharePct, 1e-9)
}

func TestWriteCSV(t *testing.T) {
	doc, samples := driftFixture()
	rows := Analyze(doc, samples, "202510")

	var buf bytes.Buffer
	checksums := map[string]string{"202509": "aaa", "202510": "bbb"}
	require.NoError(t, WriteCSV(&buf, rows, checksums))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5, "metadata + header + three rows")

	assert.True(t, strings.HasPrefix(lines[0], "# input_checksums="))
	assert.Contains(t, lines[0], `"202509":"aaa"`)
	assert.Contains(t, lines[0], `"202510":"bbb"`)
	assert.Equal(t, "period,alias,canonical_norm,count,share_pct,avg_conf", lines[1])
	assert.Equal(t, "202510,Wrong Error Code,wrong error code,1,25.00,0.8000", lines[2])
	assert.Equal(t, "202510,Error code incorrect,wrong error code,2,50.00,0.7500", lines[3])
}
