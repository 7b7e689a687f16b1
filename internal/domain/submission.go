package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActiveSubmission is the per (category, organization, user) staging area of
// pending inserts, updates and deletes.
type ActiveSubmission struct {
	ID           uuid.UUID        `json:"id"`
	CategoryID   uuid.UUID        `json:"categoryId"`
	Organization string           `json:"organization"`
	DictionaryID uuid.UUID        `json:"dictionaryId"`
	Status       SubmissionStatus `json:"status"`
	Data         SubmissionData   `json:"data"`
	Errors       SubmissionErrors `json:"errors"`
	Failure      *TaskFailure     `json:"failure,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	CreatedBy    uuid.UUID        `json:"createdBy"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	UpdatedBy    uuid.UUID        `json:"updatedBy"`
}

// InsertBatch holds the new records of one entity.
type InsertBatch struct {
	BatchName string       `json:"batchName"`
	Records   []DataRecord `json:"records"`
}

// UpdateRecord is a pending change to an existing record, expressed as the
// delta produced by datadiff.ComputeDiff.
type UpdateRecord struct {
	SystemID string     `json:"systemId"`
	Old      DataRecord `json:"old"`
	New      DataRecord `json:"new"`
}

// SubmissionData is the payload of an active submission, keyed by entity name.
type SubmissionData struct {
	Inserts map[string]InsertBatch     `json:"inserts,omitempty"`
	Updates map[string][]UpdateRecord  `json:"updates,omitempty"`
	Deletes map[string][]SubmittedData `json:"deletes,omitempty"`
}

// IsEmpty reports whether there is nothing pending.
func (d SubmissionData) IsEmpty() bool {
	for _, b := range d.Inserts {
		if len(b.Records) > 0 {
			return false
		}
	}
	for _, u := range d.Updates {
		if len(u) > 0 {
			return false
		}
	}
	for _, del := range d.Deletes {
		if len(del) > 0 {
			return false
		}
	}
	return true
}

// EntityNames returns the sorted, distinct entity names with pending changes.
func (d SubmissionData) EntityNames() []string {
	seen := make(map[string]struct{})
	for name, b := range d.Inserts {
		if len(b.Records) > 0 {
			seen[name] = struct{}{}
		}
	}
	for name, u := range d.Updates {
		if len(u) > 0 {
			seen[name] = struct{}{}
		}
	}
	for name, del := range d.Deletes {
		if len(del) > 0 {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordError lists the field errors of one submitted record. Index is the
// record position within its entity's insert batch or update list.
type RecordError struct {
	Index       int                `json:"index"`
	SystemID    string             `json:"systemId,omitempty"`
	FieldErrors []RecordFieldError `json:"fieldErrors"`
}

// RecordFieldError is one schema violation reported for a record field.
type RecordFieldError struct {
	FieldName string         `json:"fieldName"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Info      map[string]any `json:"info,omitempty"`
}

// SubmissionErrors holds validation errors attributed to the submission's own
// inserts and updates.
type SubmissionErrors struct {
	Inserts map[string][]RecordError `json:"inserts,omitempty"`
	Updates map[string][]RecordError `json:"updates,omitempty"`
}

// IsEmpty reports whether no record error is present.
func (e SubmissionErrors) IsEmpty() bool {
	for _, errs := range e.Inserts {
		if len(errs) > 0 {
			return false
		}
	}
	for _, errs := range e.Updates {
		if len(errs) > 0 {
			return false
		}
	}
	return true
}

// TaskFailure records a background task that exhausted its retries.
type TaskFailure struct {
	Operation  string    `json:"operation"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// SubmissionQuery narrows a submission listing. Zero values mean "any";
// Limit 0 means no limit.
type SubmissionQuery struct {
	CategoryID   uuid.UUID
	Organization string
	OnlyActive   bool
	Limit        int
	Offset       int
}
