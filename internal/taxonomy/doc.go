// Package taxonomy implements the consolidation core: normalizing raw
// reason labels, clustering near-duplicate phrasings, electing canonical
// labels, and assembling the versioned taxonomy document.
//
// # Pipeline
//
// The package is pure computation over in-memory samples:
//
//  1. Normalize folds each raw reason into a comparison form.
//  2. BuildIndex aggregates per-form counts, confidences, and spellings.
//  3. Clusterer groups forms whose pairwise similarity meets a threshold,
//     using transitive union-find connectivity.
//  4. SelectCanonical elects one raw spelling per cluster; the rest
//     become aliases.
//  5. BuildDocument assembles the deterministic snapshot that the
//     version store serializes and hashes.
//
// All steps are deterministic: equal sample streams produce equal
// documents, which is what makes content-hash versioning meaningful.
//
// # Scorers
//
// Two pairwise scorers are available. The default jaro-winkler scorer
// sorts tokens and applies Jaro-Winkler, so word reordering is free and
// small edits stay above typical thresholds. The token-sort scorer is
// the classic fuzzywuzzy token_sort_ratio, for operators who tuned
// their thresholds against tooling built on it.
package taxonomy
