// Package store implements the resumable record store shared by every
// pipeline stage: JSONL persistence plus keyed upsert merging, so repeated
// runs never duplicate or lose work.
package store

// Merge upserts newRecords into existing, keyed by keyFn. Existing records
// are inserted first, then new ones, so a new record with an existing key
// replaces the old one. Output preserves first-appearance order, which
// keeps rerun output stable for a given input.
func Merge[T any, K comparable](existing, newRecords []T, keyFn func(T) K) []T {
	index := make(map[K]int, len(existing)+len(newRecords))
	merged := make([]T, 0, len(existing)+len(newRecords))

	for _, rec := range append(append([]T(nil), existing...), newRecords...) {
		k := keyFn(rec)
		if pos, ok := index[k]; ok {
			merged[pos] = rec
			continue
		}
		index[k] = len(merged)
		merged = append(merged, rec)
	}

	return merged
}

// MergeKeepFirst is Merge with first-write-wins semantics: a record whose
// key is already present is dropped. Used for stores whose rows are
// immutable after creation.
func MergeKeepFirst[T any, K comparable](existing, newRecords []T, keyFn func(T) K) []T {
	seen := make(map[K]struct{}, len(existing)+len(newRecords))
	merged := make([]T, 0, len(existing)+len(newRecords))

	for _, rec := range append(append([]T(nil), existing...), newRecords...) {
		k := keyFn(rec)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, rec)
	}

	return merged
}

// Keys collects the key of every record into a set, for resume filtering.
func Keys[T any, K comparable](records []T, keyFn func(T) K) map[K]struct{} {
	set := make(map[K]struct{}, len(records))
	for _, rec := range records {
		set[keyFn(rec)] = struct{}{}
	}
	return set
}

// Pending returns the records whose key is not in done, preserving order.
// This is the resume guarantee: a restarted phase costs only the
// unfinished remainder.
func Pending[T any, K comparable](records []T, done map[K]struct{}, keyFn func(T) K) []T {
	var out []T
	for _, rec := range records {
		if _, ok := done[keyFn(rec)]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// FillMissing returns update when current is empty, current otherwise.
// The fill-only-if-missing rule for layered enrichment responses.
func FillMissing(current, update string) string {
	if current != "" {
		return current
	}
	return update
}
