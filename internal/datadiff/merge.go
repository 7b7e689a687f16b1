package datadiff

import "github.com/heartmarshall/submission-backend/internal/domain"

// MergeInserts concatenates insert batches per entity, left to right. A record
// deep-equal to one already accumulated for the same entity is dropped. The
// last non-empty batch name wins.
func MergeInserts(sets ...map[string]domain.InsertBatch) map[string]domain.InsertBatch {
	out := make(map[string]domain.InsertBatch)
	for _, set := range sets {
		for entity, batch := range set {
			acc := out[entity]
			if batch.BatchName != "" {
				acc.BatchName = batch.BatchName
			}
			for _, rec := range batch.Records {
				if containsRecord(acc.Records, rec) {
					continue
				}
				acc.Records = append(acc.Records, rec)
			}
			out[entity] = acc
		}
	}
	return out
}

// MergeDeletes unions pending deletes per entity, keyed by systemId. A later
// set replaces an earlier entry with the same systemId in place.
func MergeDeletes(sets ...map[string][]domain.SubmittedData) map[string][]domain.SubmittedData {
	return mergeBySystemID(func(d domain.SubmittedData) string { return d.SystemID }, sets...)
}

// MergeUpdates unions pending updates per entity, keyed by systemId. A later
// set replaces an earlier entry with the same systemId in place.
func MergeUpdates(sets ...map[string][]domain.UpdateRecord) map[string][]domain.UpdateRecord {
	return mergeBySystemID(func(u domain.UpdateRecord) string { return u.SystemID }, sets...)
}

func mergeBySystemID[T any](key func(T) string, sets ...map[string][]T) map[string][]T {
	out := make(map[string][]T)
	pos := make(map[string]map[string]int)

	for _, set := range sets {
		for entity, items := range set {
			idx, ok := pos[entity]
			if !ok {
				idx = make(map[string]int)
				pos[entity] = idx
			}
			acc := out[entity]
			for _, item := range items {
				k := key(item)
				if i, seen := idx[k]; seen {
					acc[i] = item
					continue
				}
				idx[k] = len(acc)
				acc = append(acc, item)
			}
			out[entity] = acc
		}
	}
	return out
}

func containsRecord(records []domain.DataRecord, rec domain.DataRecord) bool {
	for _, r := range records {
		if RecordsEqual(r, rec) {
			return true
		}
	}
	return false
}
