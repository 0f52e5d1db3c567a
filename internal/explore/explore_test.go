package explore

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangefold/lasso/internal/taxonomy"
)

func fixtureDocument() *taxonomy.Document {
	return &taxonomy.Document{
		Schema: taxonomy.DefaultSchema,
		Items: []taxonomy.Item{
			{
				Canonical:     "Wrong error code",
				CanonicalNorm: "wrong error code",
				Aliases:       []string{"Error code incorrect"},
				Metrics:       taxonomy.ItemMetrics{Count: 4},
			},
			{
				Canonical:     "Payment declined by gateway",
				CanonicalNorm: "payment declined by gateway",
				Aliases:       []string{},
				Metrics:       taxonomy.ItemMetrics{Count: 1},
			},
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(&Config{Document: fixtureDocument(), Threshold: 87})
	require.NoError(t, err)
	return s
}

func TestRankOrdersByScore(t *testing.T) {
	scorer, err := taxonomy.NewScorer("")
	require.NoError(t, err)

	matches := Rank(fixtureDocument(), scorer, "Wrong ERROR code!")
	require.Len(t, matches, 2)
	assert.Equal(t, "Wrong error code", matches[0].Canonical)
	assert.Equal(t, 100, matches[0].Score, "normalization should make the input identical")
	assert.Less(t, matches[1].Score, matches[0].Score)
}

func TestRankKeepsDocumentOrderOnTies(t *testing.T) {
	scorer, err := taxonomy.NewScorer("")
	require.NoError(t, err)

	// A label far from both items scores low against each; the tie (or
	// near-tie) must not reorder the document's frequency ranking.
	matches := Rank(fixtureDocument(), scorer, "zzz")
	require.Len(t, matches, 2)
	if matches[0].Score == matches[1].Score {
		assert.Equal(t, "Wrong error code", matches[0].Canonical)
	}
}

func TestNewRequiresDocument(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document is required")
}

func TestNewDefaultsScorer(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, taxonomy.ScorerJaroWinkler, s.scorer.Name())
}

func TestThresholdCommand(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.cmdThreshold([]string{"92"}))
	assert.Equal(t, 92, s.threshold)

	require.NoError(t, s.cmdThreshold(nil), "bare command just reports")
	assert.Equal(t, 92, s.threshold)

	err := s.cmdThreshold([]string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an integer")

	err = s.cmdThreshold([]string{"150"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 0 and 100")
	assert.Equal(t, 92, s.threshold, "rejected values must not stick")
}

func TestScorerCommand(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.cmdScorer([]string{taxonomy.ScorerTokenSort}))
	assert.Equal(t, taxonomy.ScorerTokenSort, s.scorer.Name())

	err := s.cmdScorer([]string{"soundex"})
	require.Error(t, err)
	assert.Equal(t, taxonomy.ScorerTokenSort, s.scorer.Name())
}

func TestProcessInputDispatch(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, io.EOF, s.processInput("exit"))
	assert.Equal(t, io.EOF, s.processInput(":quit"))

	err := s.processInput(":frobnicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	require.NoError(t, s.processInput(":threshold 70"))
	assert.Equal(t, 70, s.threshold)

	// Free text is scored, not treated as a command.
	require.NoError(t, s.processInput("totally wrong error code"))

	err = s.processInput("!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty after normalization")
}
