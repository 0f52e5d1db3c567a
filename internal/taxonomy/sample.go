package taxonomy

import "sort"

// Sample is one annotated reason observation drawn from a period log.
type Sample struct {
	// Raw is the reason text as annotated, trimmed of surrounding
	// whitespace but otherwise untouched.
	Raw string
	// Norm is the normalized comparison form of Raw (see Normalize).
	Norm string
	// Confidence is the annotator's self-reported confidence, 0 when
	// the record carried none.
	Confidence float64
	// Period is the token of the source file, e.g. "202510".
	Period string
	// ModelVersion identifies the annotating model, when reported.
	ModelVersion string
}

// Index aggregates the per-form statistics that clustering and election
// read: occurrence counts, confidence sums, distinct spellings, periods,
// and appearance order. Build it once per run with BuildIndex.
type Index struct {
	total int
	norms []string
	stats map[string]*formStat
	rawAt map[string]int
}

type formStat struct {
	firstSeen int
	count     int
	confSum   float64
	raws      []string
	periods   map[string]struct{}
}

// BuildIndex scans samples in stream order. Sample.Norm is trusted as
// already normalized; ingest fills it via Normalize.
func BuildIndex(samples []Sample) *Index {
	idx := &Index{
		stats: make(map[string]*formStat),
		rawAt: make(map[string]int),
	}
	for i, s := range samples {
		st, ok := idx.stats[s.Norm]
		if !ok {
			st = &formStat{firstSeen: i, periods: make(map[string]struct{})}
			idx.stats[s.Norm] = st
			idx.norms = append(idx.norms, s.Norm)
		}
		st.count++
		st.confSum += s.Confidence
		if s.Period != "" {
			st.periods[s.Period] = struct{}{}
		}
		if _, seen := idx.rawAt[s.Raw]; !seen {
			idx.rawAt[s.Raw] = i
			st.raws = append(st.raws, s.Raw)
		}
		idx.total++
	}
	return idx
}

// Total returns the number of samples indexed.
func (idx *Index) Total() int { return idx.total }

// Distinct returns the number of distinct normalized forms.
func (idx *Index) Distinct() int { return len(idx.norms) }

// Norms returns the distinct normalized forms in first-seen order.
func (idx *Index) Norms() []string { return idx.norms }

// Count returns how many samples carry the form.
func (idx *Index) Count(norm string) int {
	if st, ok := idx.stats[norm]; ok {
		return st.count
	}
	return 0
}

// ConfidenceSum returns the summed confidence of the form's samples.
func (idx *Index) ConfidenceSum(norm string) float64 {
	if st, ok := idx.stats[norm]; ok {
		return st.confSum
	}
	return 0
}

// MeanConfidence returns the mean confidence of the form's samples,
// 0 for an unknown form.
func (idx *Index) MeanConfidence(norm string) float64 {
	st, ok := idx.stats[norm]
	if !ok || st.count == 0 {
		return 0
	}
	return st.confSum / float64(st.count)
}

// FirstSeen returns the stream position where the form first appeared.
func (idx *Index) FirstSeen(norm string) int {
	if st, ok := idx.stats[norm]; ok {
		return st.firstSeen
	}
	return -1
}

// Raws returns the distinct raw spellings of the form, in the order
// each spelling first appeared.
func (idx *Index) Raws(norm string) []string {
	if st, ok := idx.stats[norm]; ok {
		return st.raws
	}
	return nil
}

// FirstRaw returns the spelling that introduced the form.
func (idx *Index) FirstRaw(norm string) string {
	if st, ok := idx.stats[norm]; ok && len(st.raws) > 0 {
		return st.raws[0]
	}
	return ""
}

// Periods returns the sorted distinct periods the form was seen in.
func (idx *Index) Periods(norm string) []string {
	st, ok := idx.stats[norm]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(st.periods))
	for p := range st.periods {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RawOrder returns the stream position where the exact spelling first
// appeared, -1 for a spelling never seen.
func (idx *Index) RawOrder(raw string) int {
	if at, ok := idx.rawAt[raw]; ok {
		return at
	}
	return -1
}
