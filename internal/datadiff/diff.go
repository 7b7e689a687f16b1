// Package datadiff computes and applies field-level deltas between data
// records and merges pending submission changes.
package datadiff

import "github.com/heartmarshall/submission-backend/internal/domain"

// ComputeDiff returns the delta that turns old into updated. A key whose values
// are equal in both records appears in neither side of the result.
func ComputeDiff(old, updated domain.DataRecord) domain.DataDiff {
	diff := domain.DataDiff{Old: domain.DataRecord{}, New: domain.DataRecord{}}

	for k, ov := range old {
		nv, ok := updated[k]
		if !ok || !Equal(ov, nv) {
			diff.Old[k] = ov
		}
	}
	for k, nv := range updated {
		ov, ok := old[k]
		if !ok || !Equal(ov, nv) {
			diff.New[k] = nv
		}
	}

	return diff
}

// ApplyDelta returns a copy of record with every key of delta.Old removed and
// every key of delta.New overlaid. Undefined values are dropped.
func ApplyDelta(record domain.DataRecord, delta domain.DataDiff) domain.DataRecord {
	out := make(domain.DataRecord, len(record)+len(delta.New))
	for k, v := range record {
		if _, removed := delta.Old[k]; removed || IsUndefined(v) {
			continue
		}
		out[k] = v
	}
	for k, v := range delta.New {
		if IsUndefined(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Compact returns a copy of record without Undefined values.
func Compact(record domain.DataRecord) domain.DataRecord {
	out := make(domain.DataRecord, len(record))
	for k, v := range record {
		if !IsUndefined(v) {
			out[k] = v
		}
	}
	return out
}
