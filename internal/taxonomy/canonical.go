package taxonomy

import (
	"sort"
	"unicode/utf8"
)

// Selection is the outcome of canonical election for one cluster.
type Selection struct {
	// Canonical is the first-seen raw spelling of the winning form.
	Canonical string
	// CanonicalNorm is the winning normalized form.
	CanonicalNorm string
	// Aliases are all other raw spellings across the cluster, in the
	// order each first appeared in the sample stream.
	Aliases []string
	// Members are the cluster's normalized forms, first-seen order.
	Members []string
}

// SelectCanonical elects the canonical label for a cluster. Members are
// ranked by occurrence count, then mean confidence, then shorter
// first-seen spelling (in characters), then earliest appearance. The
// winner's first-seen raw spelling becomes the canonical label; every
// remaining spelling across the cluster becomes an alias.
func SelectCanonical(cl Cluster, idx *Index) Selection {
	ranked := make([]string, len(cl.Members))
	copy(ranked, cl.Members)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if ca, cb := idx.Count(a), idx.Count(b); ca != cb {
			return ca > cb
		}
		if ma, mb := idx.MeanConfidence(a), idx.MeanConfidence(b); ma != mb {
			return ma > mb
		}
		la := utf8.RuneCountInString(idx.FirstRaw(a))
		lb := utf8.RuneCountInString(idx.FirstRaw(b))
		if la != lb {
			return la < lb
		}
		return idx.FirstSeen(a) < idx.FirstSeen(b)
	})

	winner := ranked[0]
	sel := Selection{
		Canonical:     idx.FirstRaw(winner),
		CanonicalNorm: winner,
		Members:       cl.Members,
	}

	seen := map[string]struct{}{sel.Canonical: {}}
	for _, m := range cl.Members {
		for _, raw := range idx.Raws(m) {
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			sel.Aliases = append(sel.Aliases, raw)
		}
	}
	// Alias order is global first-seen order, not member-major order.
	sort.Slice(sel.Aliases, func(i, j int) bool {
		return idx.RawOrder(sel.Aliases[i]) < idx.RawOrder(sel.Aliases[j])
	})
	return sel
}
