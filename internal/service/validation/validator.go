// Package validation evaluates an active submission against the records
// already committed for its organization.
package validation

import (
	"sort"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// ReasonRecordNotFound marks a pending update whose target record has been
// deleted since the update was staged.
const ReasonRecordNotFound = "RECORD_NOT_FOUND"

type schemaValidator interface {
	Validate(dict *domain.Dictionary, data map[string][]domain.DataRecord) map[string][]domain.RecordError
}

// Result is the outcome of validating a submission.
type Result struct {
	Status domain.SubmissionStatus
	Errors domain.SubmissionErrors
}

// Evaluation is a Result together with the dataset it was computed on. Every
// dataset entry carries its own field errors.
type Evaluation struct {
	Dataset Dataset
	Result  Result
}

// Validator runs the schema validator over the as-if-committed dataset and
// attributes errors back to the submission's inserts and updates.
type Validator struct {
	schema schemaValidator
}

// NewValidator creates a Validator.
func NewValidator(schema schemaValidator) *Validator {
	return &Validator{schema: schema}
}

// Validate returns the status and errors of data on top of existing.
func (v *Validator) Validate(dict *domain.Dictionary, existing []domain.SubmittedData, data domain.SubmissionData) Result {
	return v.Evaluate(dict, existing, data).Result
}

// Evaluate builds the dataset, validates it and routes every error by the
// provenance of the offending entry. Errors on unchanged existing records are
// kept on the entry but not attributed to the submission.
func (v *Validator) Evaluate(dict *domain.Dictionary, existing []domain.SubmittedData, data domain.SubmissionData) *Evaluation {
	ds, missing := BuildDataset(existing, data)
	results := v.schema.Validate(dict, ds.Records())

	var errs domain.SubmissionErrors
	for entity, recordErrs := range results {
		entries := ds[entity]
		for _, re := range recordErrs {
			if re.Index < 0 || re.Index >= len(entries) {
				continue
			}
			entry := &entries[re.Index]
			entry.Errors = re.FieldErrors

			switch ref := entry.Ref.(type) {
			case ExistingRef:
			case InsertRef:
				errs.Inserts = appendError(errs.Inserts, entity, domain.RecordError{
					Index:       ref.Index,
					FieldErrors: re.FieldErrors,
				})
			case UpdateRef:
				errs.Updates = appendError(errs.Updates, entity, domain.RecordError{
					Index:       ref.Index,
					SystemID:    ref.SystemID,
					FieldErrors: re.FieldErrors,
				})
			}
		}
	}

	for _, m := range missing {
		errs.Updates = appendError(errs.Updates, m.EntityName, domain.RecordError{
			Index:    m.Index,
			SystemID: m.SystemID,
			FieldErrors: []domain.RecordFieldError{{
				FieldName: "systemId",
				Reason:    ReasonRecordNotFound,
				Message:   "record " + m.SystemID + " no longer exists",
			}},
		})
	}

	sortErrors(errs.Inserts)
	sortErrors(errs.Updates)

	status := domain.SubmissionStatusValid
	if !errs.IsEmpty() {
		status = domain.SubmissionStatusInvalid
	}

	return &Evaluation{
		Dataset: ds,
		Result:  Result{Status: status, Errors: errs},
	}
}

func appendError(m map[string][]domain.RecordError, entity string, e domain.RecordError) map[string][]domain.RecordError {
	if m == nil {
		m = make(map[string][]domain.RecordError)
	}
	m[entity] = append(m[entity], e)
	return m
}

func sortErrors(m map[string][]domain.RecordError) {
	for _, list := range m {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	}
}
