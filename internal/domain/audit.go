package domain

import (
	"time"

	"github.com/google/uuid"
)

// DataDiff is the field-level difference between two versions of a record.
// Old holds fields removed or changed (previous values), New holds fields
// added or changed (new values).
type DataDiff struct {
	Old DataRecord `json:"old"`
	New DataRecord `json:"new"`
}

// IsEmpty reports whether the diff carries no change.
func (d DataDiff) IsEmpty() bool {
	return len(d.Old) == 0 && len(d.New) == 0
}

// AuditRecord is an append-only history entry written by a commit.
type AuditRecord struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	EntityName   string      `json:"entityName"`
	SystemID     string      `json:"systemId"`
	DataDiff     DataDiff    `json:"dataDiff"`
	OldIsValid   bool        `json:"oldIsValid"`
	NewIsValid   bool        `json:"newIsValid"`
	SubmissionID uuid.UUID   `json:"submissionId"`
	Organization string      `json:"organization"`
	CategoryID   uuid.UUID   `json:"categoryId"`
	CreatedAt    time.Time   `json:"createdAt"`
	CreatedBy    uuid.UUID   `json:"createdBy"`
}

// AuditQuery filters audit history for a category and organization.
type AuditQuery struct {
	CategoryID   uuid.UUID
	Organization string
	SystemID     string
	EntityName   string
	Action       AuditAction
	Limit        int
	Offset       int
}
