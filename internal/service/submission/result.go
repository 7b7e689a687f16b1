package submission

import "github.com/google/uuid"

// MaxPageSize caps listing limits.
const MaxPageSize = 200

// ProcessingStatus is the immediate answer to a mutating call.
type ProcessingStatus string

const (
	// StatusProcessing means the change was accepted and queued.
	StatusProcessing ProcessingStatus = "PROCESSING"
	// StatusInvalidSubmission means some or all batches were rejected.
	StatusInvalidSubmission ProcessingStatus = "INVALID_SUBMISSION"
)

// Batch error reasons.
const (
	ReasonUnrecognizedEntity = "UNRECOGNIZED_ENTITY"
	ReasonEmptyBatch         = "EMPTY_BATCH"
)

// BatchError explains why a batch was not staged.
type BatchError struct {
	EntityName string `json:"entityName"`
	BatchName  string `json:"batchName,omitempty"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

// MutationResult is returned by every mutating call before the background
// task runs. SubmissionID is nil when nothing was queued.
type MutationResult struct {
	Status            ProcessingStatus `json:"status"`
	SubmissionID      *uuid.UUID       `json:"submissionId"`
	InProcessEntities []string         `json:"inProcessEntities"`
	BatchErrors       []BatchError     `json:"batchErrors"`
}

func processing(id uuid.UUID, entities ...string) MutationResult {
	return MutationResult{
		Status:            StatusProcessing,
		SubmissionID:      &id,
		InProcessEntities: entities,
		BatchErrors:       []BatchError{},
	}
}
