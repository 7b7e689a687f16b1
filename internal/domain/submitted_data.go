package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmittedData is a committed record.
type SubmittedData struct {
	ID                uuid.UUID  `json:"id"`
	SystemID          string     `json:"systemId"`
	EntityName        string     `json:"entityName"`
	Organization      string     `json:"organization"`
	CategoryID        uuid.UUID  `json:"categoryId"`
	Data              DataRecord `json:"data"`
	IsValid           bool       `json:"isValid"`
	OriginalSchemaID  uuid.UUID  `json:"originalSchemaId"`
	LastValidSchemaID *uuid.UUID `json:"lastValidSchemaId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CreatedBy         uuid.UUID  `json:"createdBy"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy         *uuid.UUID `json:"updatedBy,omitempty"`
}

// DataFilter selects records of one entity whose data field equals a value,
// scoped to a category and organization.
type DataFilter struct {
	EntityName string
	DataField  string
	DataValue  any
}

// RecordPredicate is a compiled boolean filter over record data. It can be
// evaluated in memory or rendered to SQL.
type RecordPredicate interface {
	Match(record DataRecord) bool
	ToSql() (string, []any, error)
}

// SubmittedDataQuery narrows a listing of submitted data.
type SubmittedDataQuery struct {
	EntityNames []string
	OnlyValid   bool
	Predicate   RecordPredicate
	Limit       int
	Offset      int
}
