package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCanonicalFrequencyWins(t *testing.T) {
	// "Wrong error code" appears twice; the higher-confidence variant
	// appears once. Frequency outranks confidence.
	samples := []Sample{
		{Raw: "Wrong error code", Norm: "wrong error code", Confidence: 0.5, Period: "202510"},
		{Raw: "Error code wrong", Norm: "error code wrong", Confidence: 0.9, Period: "202510"},
		{Raw: "Wrong error code", Norm: "wrong error code", Confidence: 0.5, Period: "202510"},
	}
	idx := BuildIndex(samples)
	cl := Cluster{Members: []string{"wrong error code", "error code wrong"}}

	sel := SelectCanonical(cl, idx)
	assert.Equal(t, "Wrong error code", sel.Canonical)
	assert.Equal(t, "wrong error code", sel.CanonicalNorm)
	assert.Equal(t, []string{"Error code wrong"}, sel.Aliases)
}

func TestSelectCanonicalConfidenceBreaksFrequencyTie(t *testing.T) {
	samples := []Sample{
		{Raw: "Stale cache entry", Norm: "stale cache entry", Confidence: 0.6},
		{Raw: "Cache entry stale", Norm: "cache entry stale", Confidence: 0.9},
	}
	idx := BuildIndex(samples)
	cl := Cluster{Members: []string{"stale cache entry", "cache entry stale"}}

	sel := SelectCanonical(cl, idx)
	assert.Equal(t, "Cache entry stale", sel.Canonical)
	assert.Equal(t, []string{"Stale cache entry"}, sel.Aliases)
}

func TestSelectCanonicalShorterSpellingBreaksConfidenceTie(t *testing.T) {
	samples := []Sample{
		{Raw: "Missing documentation entry", Norm: "missing documentation entry", Confidence: 0.8},
		{Raw: "Missing docs", Norm: "missing docs", Confidence: 0.8},
	}
	idx := BuildIndex(samples)
	cl := Cluster{Members: []string{"missing documentation entry", "missing docs"}}

	sel := SelectCanonical(cl, idx)
	assert.Equal(t, "Missing docs", sel.Canonical)
}

func TestSelectCanonicalFirstSeenBreaksFullTie(t *testing.T) {
	// Same count, confidence, and spelling length: the earlier form wins.
	samples := []Sample{
		{Raw: "Bad row", Norm: "bad row", Confidence: 0.7},
		{Raw: "Row bad", Norm: "row bad", Confidence: 0.7},
	}
	idx := BuildIndex(samples)
	cl := Cluster{Members: []string{"bad row", "row bad"}}

	sel := SelectCanonical(cl, idx)
	assert.Equal(t, "Bad row", sel.Canonical)
}

func TestSelectCanonicalAliasOrderAndDedup(t *testing.T) {
	// Aliases come out in global first-seen order, de-duplicated, with
	// the canonical spelling excluded.
	samples := []Sample{
		{Raw: "Error code incorrect", Norm: "error code incorrect", Confidence: 0.8, Period: "202509"},
		{Raw: "Wrong Error Code", Norm: "wrong error code", Confidence: 0.72, Period: "202509"},
		{Raw: "Incorrect error-code", Norm: "incorrect error code", Confidence: 0.7, Period: "202510"},
		{Raw: "Wrong Error Code", Norm: "wrong error code", Confidence: 0.75, Period: "202510"},
		{Raw: "Wrong   error  code", Norm: "wrong error code", Confidence: 0.75, Period: "202510"},
	}
	idx := BuildIndex(samples)
	cl := Cluster{Members: []string{"error code incorrect", "wrong error code", "incorrect error code"}}

	sel := SelectCanonical(cl, idx)
	require.Equal(t, "Wrong Error Code", sel.Canonical, "three occurrences beat one")
	assert.Equal(t, []string{
		"Error code incorrect",
		"Incorrect error-code",
		"Wrong   error  code",
	}, sel.Aliases)
	assert.NotContains(t, sel.Aliases, sel.Canonical)
}
