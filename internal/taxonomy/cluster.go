package taxonomy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/xrash/smetrics"
)

// Scorer names accepted by NewScorer.
const (
	ScorerJaroWinkler = "jaro-winkler"
	ScorerTokenSort   = "token-sort"
)

// Scorer computes an order-insensitive similarity score between two
// normalized forms, scaled to 0..100.
type Scorer interface {
	Score(a, b string) int
	Name() string
}

// NewScorer returns the scorer registered under name.
func NewScorer(name string) (Scorer, error) {
	switch name {
	case ScorerJaroWinkler, "":
		return jaroWinklerScorer{}, nil
	case ScorerTokenSort:
		return tokenSortScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q (want %q or %q)", name, ScorerJaroWinkler, ScorerTokenSort)
	}
}

// jaroWinklerScorer sorts tokens and applies Jaro-Winkler to the joined
// forms. Word reordering scores 100; small edits keep a long shared
// prefix and stay high. This is the default.
type jaroWinklerScorer struct{}

func (jaroWinklerScorer) Name() string { return ScorerJaroWinkler }

func (jaroWinklerScorer) Score(a, b string) int {
	sa, sb := sortTokens(a), sortTokens(b)
	switch {
	case sa == "" && sb == "":
		return 100
	case sa == "" || sb == "":
		return 0
	case sa == sb:
		return 100
	}
	return int(math.Round(smetrics.JaroWinkler(sa, sb, 0.7, 4) * 100))
}

// tokenSortScorer is the classic fuzzywuzzy token_sort_ratio. Kept so
// thresholds tuned against fuzzywuzzy-based tooling carry over.
type tokenSortScorer struct{}

func (tokenSortScorer) Name() string { return ScorerTokenSort }

func (tokenSortScorer) Score(a, b string) int {
	return fuzzy.TokenSortRatio(a, b)
}

func sortTokens(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// Clusterer groups normalized forms whose pairwise similarity meets
// Threshold. Connectivity is transitive: two forms share a cluster when
// any chain of at-or-above-threshold pairs links them.
type Clusterer struct {
	// Threshold is the minimum score (0..100) that merges two forms.
	Threshold int
	// Scorer is the pairwise scorer; nil selects the default.
	Scorer Scorer
}

// Cluster is a set of normalized forms, members in first-seen order.
type Cluster struct {
	Members []string
}

// Cluster partitions the distinct normalized forms of idx. Clusters are
// ordered by the first appearance of their earliest member and members
// within a cluster likewise, so equal inputs yield equal output.
func (c *Clusterer) Cluster(idx *Index) []Cluster {
	scorer := c.Scorer
	if scorer == nil {
		scorer = jaroWinklerScorer{}
	}
	norms := idx.Norms()
	uf := newUnionFind(len(norms))
	for i := 0; i < len(norms); i++ {
		for j := i + 1; j < len(norms); j++ {
			if scorer.Score(norms[i], norms[j]) >= c.Threshold {
				uf.union(i, j)
			}
		}
	}

	order := make([]int, 0, len(norms))
	members := make(map[int][]string, len(norms))
	for i, n := range norms {
		root := uf.find(i)
		if _, ok := members[root]; !ok {
			order = append(order, root)
		}
		members[root] = append(members[root], n)
	}

	clusters := make([]Cluster, 0, len(order))
	for _, root := range order {
		clusters = append(clusters, Cluster{Members: members[root]})
	}
	return clusters
}
