package validation

import (
	"sort"

	"github.com/heartmarshall/submission-backend/internal/datadiff"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Ref records where a dataset entry came from. It is one of ExistingRef,
// InsertRef or UpdateRef.
type Ref interface {
	isRef()
}

// ExistingRef is a committed record carried into the dataset unchanged.
type ExistingRef struct {
	Prior domain.SubmittedData
}

// InsertRef is a new record from the submission's inserts.
type InsertRef struct {
	Index int
}

// UpdateRef is a committed record with a pending update applied. Index points
// into the submission's updates of the entity.
type UpdateRef struct {
	Index    int
	SystemID string
	Prior    domain.SubmittedData
}

func (ExistingRef) isRef() {}
func (InsertRef) isRef()   {}
func (UpdateRef) isRef()   {}

// Entry is one record of the as-if-committed dataset.
type Entry struct {
	Data   domain.DataRecord
	Ref    Ref
	Errors []domain.RecordFieldError
}

// IsValid reports whether the schema validator found no violation.
func (e Entry) IsValid() bool { return len(e.Errors) == 0 }

// Dataset is the state the store would hold if the submission were committed,
// grouped by entity name.
type Dataset map[string][]Entry

// Records returns the record data per entity, in entry order.
func (d Dataset) Records() map[string][]domain.DataRecord {
	out := make(map[string][]domain.DataRecord, len(d))
	for entity, entries := range d {
		recs := make([]domain.DataRecord, len(entries))
		for i, e := range entries {
			recs[i] = e.Data
		}
		out[entity] = recs
	}
	return out
}

// EntityNames returns the dataset entities in order.
func (d Dataset) EntityNames() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingUpdate is a pending update whose target record is no longer stored.
type MissingUpdate struct {
	EntityName string
	Index      int
	SystemID   string
}

// BuildDataset merges existing records with the pending changes of data:
// deleted records are dropped, updated records get their delta applied and
// inserts are appended.
func BuildDataset(existing []domain.SubmittedData, data domain.SubmissionData) (Dataset, []MissingUpdate) {
	deleted := make(map[string]struct{})
	for _, recs := range data.Deletes {
		for _, d := range recs {
			deleted[d.SystemID] = struct{}{}
		}
	}

	type pendingUpdate struct {
		index  int
		update domain.UpdateRecord
		used   bool
	}
	updates := make(map[string]*pendingUpdate)
	for _, list := range data.Updates {
		for i, u := range list {
			updates[u.SystemID] = &pendingUpdate{index: i, update: u}
		}
	}

	ds := make(Dataset)
	for _, rec := range existing {
		if _, gone := deleted[rec.SystemID]; gone {
			continue
		}
		if pu, ok := updates[rec.SystemID]; ok {
			pu.used = true
			ds[rec.EntityName] = append(ds[rec.EntityName], Entry{
				Data: datadiff.ApplyDelta(rec.Data, domain.DataDiff{Old: pu.update.Old, New: pu.update.New}),
				Ref:  UpdateRef{Index: pu.index, SystemID: rec.SystemID, Prior: rec},
			})
			continue
		}
		ds[rec.EntityName] = append(ds[rec.EntityName], Entry{
			Data: datadiff.Compact(rec.Data),
			Ref:  ExistingRef{Prior: rec},
		})
	}

	var missing []MissingUpdate
	for entity, list := range data.Updates {
		for i, u := range list {
			if _, gone := deleted[u.SystemID]; gone {
				continue
			}
			if pu := updates[u.SystemID]; pu != nil && !pu.used {
				missing = append(missing, MissingUpdate{EntityName: entity, Index: i, SystemID: u.SystemID})
			}
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].EntityName != missing[j].EntityName {
			return missing[i].EntityName < missing[j].EntityName
		}
		return missing[i].Index < missing[j].Index
	})

	for entity, batch := range data.Inserts {
		for i, rec := range batch.Records {
			ds[entity] = append(ds[entity], Entry{
				Data: datadiff.Compact(rec),
				Ref:  InsertRef{Index: i},
			})
		}
	}

	return ds, missing
}
